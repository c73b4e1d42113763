// Package reading stores and retrieves sensor readings.
//
// A reading is one observation from a field node: DHT22 temperature and
// humidity, MQ2 gas level, or a motion event. Ingestion appends readings
// to SQLite (the system of record) and updates an optional Redis
// write-through cache that serves the latest-reading endpoint without a
// table scan.
//
// # Usage
//
//	repo := reading.NewSQLiteRepository(db.DB)
//	err := repo.Save(ctx, &reading.SensorReading{
//	    SensorID:    reading.StreamDHT22,
//	    Temperature: &temp,
//	    Humidity:    &hum,
//	})
//
//	latest, err := repo.Latest(ctx, "")
//	history, err := repo.History(ctx, reading.Filter{SensorID: reading.StreamMQ2, Limit: 100})
package reading
