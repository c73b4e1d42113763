// Package ingest bridges MQTT sensor topics into storage and realtime fanout.
//
// Each inbound sensor message is decoded, stamped, appended to SQLite and
// broadcast to connected web clients as a sensor:update event. Storage and
// fanout are deliberately decoupled: a failed insert is logged but never
// blocks the broadcast, so live dashboards keep updating even when the disk
// is unhappy.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/homelink-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/homelink-bridge/internal/reading"
)

// EventSensorUpdate is the realtime event name for new readings.
const EventSensorUpdate = "sensor:update"

// defaultStoreTimeout bounds the SQLite insert per message.
const defaultStoreTimeout = 5 * time.Second

// Store persists sensor readings.
type Store interface {
	Save(ctx context.Context, r *reading.SensorReading) error
}

// Broadcaster fans an event out to connected realtime clients.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// Cache is the optional latest-reading write-through cache.
type Cache interface {
	SetLatest(ctx context.Context, r *reading.SensorReading) error
}

// Metrics is the optional time-series mirror.
type Metrics interface {
	WriteSensorMetric(sensorID string, field string, value float64, timestamp time.Time)
}

// Subscriber registers message handlers on the MQTT client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the subset of logging.Logger the pipeline needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Pipeline routes inbound sensor messages to storage and fanout.
type Pipeline struct {
	store   Store
	hub     Broadcaster
	cache   Cache   // may be nil
	metrics Metrics // may be nil
	logger  Logger
}

// Deps carries the pipeline's collaborators.
//
// Cache and Metrics are optional; nil disables the respective mirror.
type Deps struct {
	Store   Store
	Hub     Broadcaster
	Cache   Cache
	Metrics Metrics
	Logger  Logger
}

// New creates an ingestion pipeline.
func New(deps Deps) *Pipeline {
	return &Pipeline{
		store:   deps.Store,
		hub:     deps.Hub,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

// Start subscribes the pipeline to every sensor topic.
//
// Parameters:
//   - sub: MQTT client (subscriptions are restored on reconnect by the client)
//   - qos: QoS level for the sensor subscriptions
//
// Returns:
//   - error: If any subscription fails
func (p *Pipeline) Start(sub Subscriber, qos byte) error {
	for _, topic := range mqtt.SensorTopics() {
		if err := sub.Subscribe(topic, qos, p.HandleMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	return nil
}

// sensorPayload is the wire shape published by the field nodes.
//
// Fields are pointers so absence is distinguishable from zero. Timestamp
// is raw because nodes send either epoch milliseconds or an RFC 3339
// string depending on firmware age.
type sensorPayload struct {
	Temperature *float64        `json:"temperature"`
	Humidity    *float64        `json:"humidity"`
	Gas         *float64        `json:"gas"`
	Motion      *bool           `json:"motion"`
	Timestamp   json.RawMessage `json:"timestamp"`
}

// HandleMessage processes one inbound sensor message.
//
// Malformed payloads and unknown topics are dropped with a warning.
// A storage failure is logged but the broadcast still happens; connected
// clients see live data even when persistence is degraded.
func (p *Pipeline) HandleMessage(topic string, payload []byte) error {
	stream, ok := streamForTopic(topic)
	if !ok {
		p.logger.Warn("dropping message from unrecognised sensor topic", "topic", topic)
		return nil
	}

	var wire sensorPayload
	if err := json.Unmarshal(payload, &wire); err != nil {
		p.logger.Warn("dropping malformed sensor payload",
			"topic", topic,
			"error", err,
		)
		return nil
	}

	r := &reading.SensorReading{
		SensorID:    stream,
		Temperature: wire.Temperature,
		Humidity:    wire.Humidity,
		Gas:         wire.Gas,
		Motion:      wire.Motion,
		Timestamp:   resolveTimestamp(wire.Timestamp),
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultStoreTimeout)
	defer cancel()

	if err := p.store.Save(ctx, r); err != nil {
		// Broadcast proceeds regardless: storage and fanout are independent.
		p.logger.Error("failed to store sensor reading",
			"topic", topic,
			"sensor_id", stream,
			"error", err,
		)
	} else {
		p.mirror(ctx, r)
	}

	p.hub.Broadcast(EventSensorUpdate, r)

	return nil
}

// mirror updates the optional cache and time-series copies of a stored reading.
func (p *Pipeline) mirror(ctx context.Context, r *reading.SensorReading) {
	if p.cache != nil {
		if err := p.cache.SetLatest(ctx, r); err != nil {
			p.logger.Warn("failed to update latest-reading cache",
				"sensor_id", r.SensorID,
				"error", err,
			)
		}
	}

	if p.metrics == nil {
		return
	}
	if r.Temperature != nil {
		p.metrics.WriteSensorMetric(r.SensorID, "temperature", *r.Temperature, r.Timestamp)
	}
	if r.Humidity != nil {
		p.metrics.WriteSensorMetric(r.SensorID, "humidity", *r.Humidity, r.Timestamp)
	}
	if r.Gas != nil {
		p.metrics.WriteSensorMetric(r.SensorID, "gas", *r.Gas, r.Timestamp)
	}
	if r.Motion != nil {
		v := 0.0
		if *r.Motion {
			v = 1.0
		}
		p.metrics.WriteSensorMetric(r.SensorID, "motion", v, r.Timestamp)
	}
}

// streamForTopic maps a sensor topic to its stream identifier.
func streamForTopic(topic string) (string, bool) {
	switch topic {
	case mqtt.TopicSensorDHT22:
		return reading.StreamDHT22, true
	case mqtt.TopicSensorMQ2:
		return reading.StreamMQ2, true
	case mqtt.TopicSensorMotion:
		return reading.StreamMotion, true
	default:
		return "", false
	}
}

// resolveTimestamp extracts the observation time from a raw payload field.
//
// Accepted forms: epoch milliseconds (number) or RFC 3339 (string).
// Anything else, including absence, falls back to arrival time.
func resolveTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Now().UTC()
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis).UTC()
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC()
		}
		if millis, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(millis).UTC()
		}
	}

	return time.Now().UTC()
}
