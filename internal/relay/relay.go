// Package relay turns client control events into actuator commands.
//
// Web clients emit events named after the MQTT control topics
// (control/fan/speed, control/stepper/step, control/lamp/state,
// control/led/brightness). For each accepted command the relay derives a
// normalised action record, appends it to the actions table, and only then
// publishes the command payload to the broker. A failed append aborts the
// publish: the audit trail never lags behind the field bus.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/nerrad567/homelink-bridge/internal/action"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/mqtt"
)

// EventCommandError is sent back to the requesting session when a
// command is rejected or fails to dispatch.
const EventCommandError = "command:error"

// defaultAppendTimeout bounds the SQLite insert per command.
const defaultAppendTimeout = 5 * time.Second

// Publisher sends command payloads to the broker.
type Publisher interface {
	PublishString(topic string, payload string, qos byte, retained bool) error
}

// Recorder appends action records.
type Recorder interface {
	Append(ctx context.Context, a *action.Action) error
}

// Registrar wires client event handlers into the realtime hub.
type Registrar interface {
	OnClientEvent(event string, handler func(sessionID string, data json.RawMessage))
}

// Responder sends an event to a single session.
type Responder interface {
	SendToSession(sessionID string, event string, data any) bool
}

// Metrics is the optional time-series mirror of dispatched commands.
type Metrics interface {
	WriteActionMetric(componentID string, action string, value float64)
}

// Logger is the subset of logging.Logger the relay needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

// Relay dispatches control commands from web clients to actuators.
type Relay struct {
	recorder  Recorder
	publisher Publisher
	responder Responder
	metrics   Metrics // may be nil
	logger    Logger
	qos       byte
}

// Deps carries the relay's collaborators. Metrics is optional; nil
// disables the time-series mirror.
type Deps struct {
	Recorder  Recorder
	Publisher Publisher
	Responder Responder
	Metrics   Metrics
	Logger    Logger
	QoS       byte
}

// New creates a command relay.
func New(deps Deps) *Relay {
	return &Relay{
		recorder:  deps.Recorder,
		publisher: deps.Publisher,
		responder: deps.Responder,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		qos:       deps.QoS,
	}
}

// Register attaches a handler for every control topic event.
func (r *Relay) Register(reg Registrar) {
	for _, topic := range mqtt.ControlTopics() {
		topic := topic
		reg.OnClientEvent(topic, func(sessionID string, data json.RawMessage) {
			r.Handle(sessionID, topic, data)
		})
	}
}

// command is the wire shape of a client control event. Each control
// family carries its magnitude in its own field; only the one matching
// the event topic is read.
type command struct {
	ComponentID string          `json:"componentId"`
	UserID      string          `json:"userId"`
	Speed       json.RawMessage `json:"speed"`
	Steps       json.RawMessage `json:"steps"`
	State       json.RawMessage `json:"state"`
	Brightness  json.RawMessage `json:"brightness"`
}

// commandErrorPayload is sent to the session on rejection or failure.
type commandErrorPayload struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

// Handle processes one control event from a client session.
//
// Sequence: validate, derive the normalised action, append to the actions
// table, then publish the payload text to the broker. Append failures
// abort the publish; publish failures are reported but the record stands.
func (r *Relay) Handle(sessionID string, topic string, data json.RawMessage) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		r.reject(sessionID, topic, "malformed command payload")
		return
	}
	if cmd.ComponentID == "" {
		r.reject(sessionID, topic, "componentId is required")
		return
	}
	if cmd.UserID == "" {
		r.reject(sessionID, topic, "userId is required")
		return
	}

	rec, payload, magnitude, err := derive(topic, cmd)
	if err != nil {
		r.reject(sessionID, topic, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultAppendTimeout)
	defer cancel()

	if err := r.recorder.Append(ctx, rec); err != nil {
		r.logger.Error("failed to record action, command not dispatched",
			"topic", topic,
			"component_id", cmd.ComponentID,
			"error", err,
		)
		r.reject(sessionID, topic, "failed to record action")
		return
	}

	if err := r.publisher.PublishString(topic, payload, r.qos, false); err != nil {
		r.logger.Error("failed to publish command",
			"topic", topic,
			"action_id", rec.ID,
			"error", err,
		)
		r.reject(sessionID, topic, "failed to dispatch command")
		return
	}

	if r.metrics != nil {
		r.metrics.WriteActionMetric(rec.ComponentID, rec.Action, magnitude)
	}

	r.logger.Info("command dispatched",
		"topic", topic,
		"component_id", rec.ComponentID,
		"action", rec.Action,
		"value", rec.Value,
	)
}

// reject sends an error frame to the requesting session.
func (r *Relay) reject(sessionID string, topic string, message string) {
	r.logger.Warn("command rejected", "topic", topic, "reason", message)
	if r.responder != nil {
		r.responder.SendToSession(sessionID, EventCommandError, commandErrorPayload{
			Topic:   topic,
			Message: message,
		})
	}
}

// derive builds the action record, broker payload, and metric magnitude
// for a command.
//
// Derivation rules per topic family, magnitude field in parentheses:
//
//	control/fan/speed       (speed)      set_speed N          "speed set to N%"
//	control/stepper/step    (steps)      open/close by sign   "moved N steps" (signed)
//	control/led/brightness  (brightness) set_brightness N     "brightness set to N%"
//	control/lamp/state      (state)      on/off               "turned on"/"turned off"
//
// The broker payload is the raw magnitude text: signed steps for the
// stepper, the percentage for fan and led, the state word for the lamp.
func derive(topic string, cmd command) (*action.Action, string, float64, error) {
	rec := &action.Action{
		ComponentID: cmd.ComponentID,
		UserID:      cmd.UserID,
	}

	switch topic {
	case mqtt.TopicControlFanSpeed:
		n, err := numericField("speed", cmd.Speed)
		if err != nil {
			return nil, "", 0, err
		}
		text := formatNumber(n)
		rec.Action = "set_speed"
		rec.Value = text
		rec.State = fmt.Sprintf("speed set to %s%%", text)
		return rec, text, n, nil

	case mqtt.TopicControlStepperStep:
		n, err := numericField("steps", cmd.Steps)
		if err != nil {
			return nil, "", 0, err
		}
		signed := formatNumber(n)
		if n > 0 {
			rec.Action = "open"
		} else {
			rec.Action = "close"
		}
		rec.Value = formatNumber(math.Abs(n))
		rec.State = fmt.Sprintf("moved %s steps", signed)
		return rec, signed, n, nil

	case mqtt.TopicControlLEDBrightness:
		n, err := numericField("brightness", cmd.Brightness)
		if err != nil {
			return nil, "", 0, err
		}
		text := formatNumber(n)
		rec.Action = "set_brightness"
		rec.Value = text
		rec.State = fmt.Sprintf("brightness set to %s%%", text)
		return rec, text, n, nil

	case mqtt.TopicControlLampState:
		state, err := lampState(cmd.State)
		if err != nil {
			return nil, "", 0, err
		}
		rec.Action = state
		rec.Value = state
		rec.State = "turned " + state
		var magnitude float64
		if state == "on" {
			magnitude = 1
		}
		return rec, state, magnitude, nil

	default:
		return nil, "", 0, fmt.Errorf("unrecognised control topic %q", topic)
	}
}

// numericField decodes a JSON number from the named magnitude field.
func numericField(name string, raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%s is required", name)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

// lampState decodes and validates the lamp state field ("on" or "off").
func lampState(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("state is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("state must be \"on\" or \"off\"")
	}
	if s != "on" && s != "off" {
		return "", fmt.Errorf("state must be \"on\" or \"off\", got %q", s)
	}
	return s, nil
}

// formatNumber renders a magnitude in canonical text form: no trailing
// zeros, no exponent ("50", "-5", "22.5").
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
