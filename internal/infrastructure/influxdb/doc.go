// Package influxdb provides InfluxDB connectivity for the HomeLink bridge.
//
// It wraps the official influxdb-client-go v2 library with HomeLink-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// SQLite remains the system of record for sensor readings and actions;
// this package mirrors the same telemetry into a time-series bucket for
// dashboards and retention-friendly downsampling. The mirror is optional
// and best-effort: when disabled or unreachable, ingestion proceeds
// unaffected.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "homelink",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSensorMetric("DHT22", "temperature", 21.5, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
