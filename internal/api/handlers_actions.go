package api

import (
	"net/http"

	"github.com/nerrad567/homelink-bridge/internal/action"
)

// handleListActions returns the action history, newest first.
//
// GET /actions?componentId=fan_lr&userId=u1&action=set_speed&limit=50&offset=0
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	filter := action.Filter{
		ComponentID: r.URL.Query().Get("componentId"),
		UserID:      r.URL.Query().Get("userId"),
		Action:      r.URL.Query().Get("action"),
	}

	var ok bool
	if filter.Limit, ok = queryInt(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = queryInt(w, r, "offset"); !ok {
		return
	}

	result, err := s.actions.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to query actions", "error", err)
		writeInternalError(w, "failed to retrieve actions")
		return
	}

	writeSuccess(w, http.StatusOK, result)
}
