package reading

import "time"

// Known sensor stream identifiers.
//
// Each MQTT sensor topic maps to exactly one stream. The identifiers are
// stored verbatim in the sensor_id column and echoed to web clients.
const (
	StreamDHT22  = "DHT22"
	StreamMQ2    = "MQ2"
	StreamMotion = "MOTION"
)

// SensorReading is a single ingested sensor observation.
//
// Field presence depends on the stream: DHT22 readings carry temperature
// and humidity, MQ2 readings carry gas, motion readings carry motion.
// Absent fields are nil and serialise as JSON null.
type SensorReading struct {
	ID          int64     `json:"id"`
	SensorID    string    `json:"sensorId"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Gas         *float64  `json:"gas"`
	Motion      *bool     `json:"motion"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Filter narrows History queries.
//
// A zero-value filter returns the most recent readings across all streams.
type Filter struct {
	// SensorID restricts results to a single stream ("" = all streams).
	SensorID string

	// Limit caps the number of rows (default 50, max 200).
	Limit int

	// Offset skips rows for pagination.
	Offset int
}
