// Package action records actuator commands dispatched by the bridge.
//
// Every accepted control command produces one Action row before the
// corresponding MQTT publish. The record captures who requested the
// command, which component it targets, the normalised action verb and
// magnitude, and a human-readable resulting state.
package action

import "time"

// Action represents a single dispatched actuator command.
//
// Value, State, EnergyConsumption and Error are free-form and optional;
// empty strings serialise as absent and store as NULL.
type Action struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	ComponentID       string    `json:"componentId"`
	Action            string    `json:"action"`
	Value             string    `json:"value,omitempty"`
	UserID            string    `json:"userId"`
	State             string    `json:"state,omitempty"`
	EnergyConsumption string    `json:"energyConsumption,omitempty"`
	Error             string    `json:"error,omitempty"`
}

// Filter controls which actions to return.
type Filter struct {
	ComponentID string // optional: filter by target component
	UserID      string // optional: filter by requesting user
	Action      string // optional: filter by action verb
	Limit       int    // default 50, max 200
	Offset      int    // pagination offset
}

// ListResult contains the paginated action results.
type ListResult struct {
	Actions []Action `json:"actions"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}
