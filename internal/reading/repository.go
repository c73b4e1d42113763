package reading

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteRepository persists sensor readings in the sensor_readings table.
//
// The table is append-only: readings are inserted during ingestion and
// never updated or deleted by the bridge.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite sensor reading repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save inserts a new sensor reading.
//
// It fills in CreatedAt and the generated ID on the passed reading.
// A zero Timestamp defaults to the time of the call.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - r: Reading to persist (mutated with ID and CreatedAt)
//
// Returns:
//   - error: nil on success, otherwise wraps ErrStorage
func (repo *SQLiteRepository) Save(ctx context.Context, r *SensorReading) error {
	if r == nil {
		return fmt.Errorf("%w: reading is nil", ErrStorage)
	}
	if r.SensorID == "" {
		return fmt.Errorf("%w: sensor id is required", ErrStorage)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	r.CreatedAt = time.Now().UTC()

	result, err := repo.db.ExecContext(ctx,
		`INSERT INTO sensor_readings (sensor_id, temperature, humidity, gas, motion, timestamp, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SensorID,
		nullableFloat(r.Temperature),
		nullableFloat(r.Humidity),
		nullableFloat(r.Gas),
		nullableBool(r.Motion),
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: inserting reading: %w", ErrStorage, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: reading insert id: %w", ErrStorage, err)
	}
	r.ID = id

	return nil
}

// Latest returns the most recent reading, optionally limited to one stream.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - sensorID: Stream to query ("" = any stream)
//
// Returns:
//   - *SensorReading: The newest reading by timestamp
//   - error: ErrNotFound when the table (or stream) is empty
func (repo *SQLiteRepository) Latest(ctx context.Context, sensorID string) (*SensorReading, error) {
	query := `SELECT id, sensor_id, temperature, humidity, gas, motion, timestamp, created_at
	          FROM sensor_readings`
	args := []any{}
	if sensorID != "" {
		query += " WHERE sensor_id = ?"
		args = append(args, sensorID)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT 1"

	row := repo.db.QueryRowContext(ctx, query, args...)
	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying latest reading: %w", ErrStorage, err)
	}

	return r, nil
}

// History returns readings ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - filter: Stream/limit/offset constraints (limit default 50, max 200)
//
// Returns:
//   - []SensorReading: Matching readings ordered by timestamp DESC
//   - error: nil on success, otherwise wraps ErrStorage
func (repo *SQLiteRepository) History(ctx context.Context, filter Filter) ([]SensorReading, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, sensor_id, temperature, humidity, gas, motion, timestamp, created_at
	          FROM sensor_readings`
	args := []any{}
	if filter.SensorID != "" {
		query += " WHERE sensor_id = ?"
		args = append(args, filter.SensorID)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying reading history: %w", ErrStorage, err)
	}
	defer rows.Close()

	readings := make([]SensorReading, 0, limit)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning reading: %w", ErrStorage, err)
		}
		readings = append(readings, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating readings: %w", ErrStorage, err)
	}

	return readings, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanReading.
type scanner interface {
	Scan(dest ...any) error
}

// scanReading scans a sensor_readings row into a SensorReading.
func scanReading(s scanner) (*SensorReading, error) {
	var (
		r           SensorReading
		temperature sql.NullFloat64
		humidity    sql.NullFloat64
		gas         sql.NullFloat64
		motion      sql.NullInt64
		timestamp   string
		createdAt   string
	)

	if err := s.Scan(&r.ID, &r.SensorID, &temperature, &humidity, &gas, &motion, &timestamp, &createdAt); err != nil {
		return nil, err
	}

	if temperature.Valid {
		r.Temperature = &temperature.Float64
	}
	if humidity.Valid {
		r.Humidity = &humidity.Float64
	}
	if gas.Valid {
		r.Gas = &gas.Float64
	}
	if motion.Valid {
		v := motion.Int64 != 0
		r.Motion = &v
	}

	ts, err := parseStoredTimestamp(timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	r.Timestamp = ts

	created, err := parseStoredTimestamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = created

	return &r, nil
}

// parseStoredTimestamp parses a timestamp stored in SQLite.
func parseStoredTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp is empty")
	}

	ts, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return ts, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, err
}

// nullableFloat converts a *float64 to a driver-friendly value.
func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// nullableBool converts a *bool to 0/1 for the INTEGER motion column.
func nullableBool(v *bool) any {
	if v == nil {
		return nil
	}
	if *v {
		return 1
	}
	return 0
}
