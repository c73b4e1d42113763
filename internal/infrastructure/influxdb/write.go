package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorMetric writes a single sensor field to InfluxDB.
//
// This is the primary method for mirroring ingested telemetry. The write
// is non-blocking; data is batched and sent asynchronously. Boolean sensor
// fields (motion) are recorded as 0/1 by the caller.
//
// Parameters:
//   - sensorID: Sensor stream identifier (e.g., "DHT22", "MQ2", "MOTION")
//   - field: The metric name (e.g., "temperature", "humidity", "gas", "motion")
//   - value: The numeric value to record
//   - timestamp: Reading timestamp (observation time, not arrival time)
//
// Example:
//
//	client.WriteSensorMetric("DHT22", "temperature", 21.5, reading.Timestamp)
func (c *Client) WriteSensorMetric(sensorID string, field string, value float64, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"sensor_id": sensorID,
			"field":     field,
		},
		map[string]interface{}{
			"value": value,
		},
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteActionMetric records a dispatched actuator command.
//
// The command relay calls this after a successful broker publish, so the
// series tracks commands that actually reached the field bus.
//
// Parameters:
//   - componentID: Actuator identifier (e.g., "fan_lr", "shutter_lr")
//   - action: Normalised action verb (e.g., "set_speed", "open")
//   - value: Command magnitude (1/0 for "on"/"off")
func (c *Client) WriteActionMetric(componentID string, action string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"actions",
		map[string]string{
			"component_id": componentID,
			"action":       action,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
