package reading_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/homelink-bridge/internal/infrastructure/database"
	"github.com/nerrad567/homelink-bridge/internal/reading"
	_ "github.com/nerrad567/homelink-bridge/migrations"
)

// openTestDB creates a migrated temporary database for repository tests.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return db
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestSave_FillsIDAndCreatedAt(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)

	r := &reading.SensorReading{
		SensorID:    reading.StreamDHT22,
		Temperature: floatPtr(21.5),
		Humidity:    floatPtr(48.0),
		Timestamp:   time.Now().UTC(),
	}

	if err := repo.Save(context.Background(), r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if r.ID == 0 {
		t.Error("Save() did not set ID")
	}
	if r.CreatedAt.IsZero() {
		t.Error("Save() did not set CreatedAt")
	}
}

func TestSave_DefaultsTimestamp(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)

	r := &reading.SensorReading{SensorID: reading.StreamMotion, Motion: boolPtr(true)}
	if err := repo.Save(context.Background(), r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if r.Timestamp.IsZero() {
		t.Error("Save() did not default zero timestamp")
	}
}

func TestSave_MissingSensorID(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)

	err := repo.Save(context.Background(), &reading.SensorReading{})
	if !errors.Is(err, reading.ErrStorage) {
		t.Errorf("Save() error = %v, want ErrStorage", err)
	}
}

func TestLatest_Empty(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)

	_, err := repo.Latest(context.Background(), "")
	if !errors.Is(err, reading.ErrNotFound) {
		t.Errorf("Latest() error = %v, want ErrNotFound", err)
	}
}

func TestLatest_ReturnsNewestByTimestamp(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	older := &reading.SensorReading{
		SensorID:    reading.StreamDHT22,
		Temperature: floatPtr(20.0),
		Timestamp:   base,
	}
	newer := &reading.SensorReading{
		SensorID: reading.StreamMQ2,
		Gas:      floatPtr(312.0),
		// Stored later in wall-clock terms but inserted second; Latest
		// orders by the reading timestamp, not insertion order.
		Timestamp: base.Add(5 * time.Minute),
	}

	if err := repo.Save(ctx, newer); err != nil {
		t.Fatalf("Save(newer) error = %v", err)
	}
	if err := repo.Save(ctx, older); err != nil {
		t.Fatalf("Save(older) error = %v", err)
	}

	latest, err := repo.Latest(ctx, "")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.SensorID != reading.StreamMQ2 {
		t.Errorf("Latest() sensor = %q, want %q", latest.SensorID, reading.StreamMQ2)
	}
	if latest.Gas == nil || *latest.Gas != 312.0 {
		t.Errorf("Latest() gas = %v, want 312", latest.Gas)
	}
	if latest.Temperature != nil {
		t.Errorf("Latest() temperature = %v, want nil for MQ2 stream", latest.Temperature)
	}
}

func TestLatest_FilterByStream(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	dht := &reading.SensorReading{SensorID: reading.StreamDHT22, Temperature: floatPtr(22.0), Timestamp: base}
	motion := &reading.SensorReading{SensorID: reading.StreamMotion, Motion: boolPtr(true), Timestamp: base.Add(time.Minute)}

	if err := repo.Save(ctx, dht); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, motion); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	latest, err := repo.Latest(ctx, reading.StreamDHT22)
	if err != nil {
		t.Fatalf("Latest(DHT22) error = %v", err)
	}
	if latest.SensorID != reading.StreamDHT22 {
		t.Errorf("Latest(DHT22) sensor = %q", latest.SensorID)
	}

	_, err = repo.Latest(ctx, reading.StreamMQ2)
	if !errors.Is(err, reading.ErrNotFound) {
		t.Errorf("Latest(MQ2) error = %v, want ErrNotFound", err)
	}
}

func TestLatest_PreservesMotionValue(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	r := &reading.SensorReading{SensorID: reading.StreamMotion, Motion: boolPtr(false)}
	if err := repo.Save(ctx, r); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	latest, err := repo.Latest(ctx, reading.StreamMotion)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.Motion == nil || *latest.Motion != false {
		t.Errorf("Latest() motion = %v, want false (not nil)", latest.Motion)
	}
}

func TestHistory_OrderAndLimit(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := &reading.SensorReading{
			SensorID:    reading.StreamDHT22,
			Temperature: floatPtr(float64(20 + i)),
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	readings, err := repo.History(ctx, reading.Filter{Limit: 3})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("History() length = %d, want 3", len(readings))
	}
	// Newest first.
	for i := 1; i < len(readings); i++ {
		if readings[i].Timestamp.After(readings[i-1].Timestamp) {
			t.Errorf("History() not ordered newest first at index %d", i)
		}
	}
	if *readings[0].Temperature != 24.0 {
		t.Errorf("History()[0] temperature = %v, want 24", *readings[0].Temperature)
	}
}

func TestHistory_ClampsLimit(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if err := repo.Save(ctx, &reading.SensorReading{SensorID: reading.StreamMQ2, Gas: floatPtr(1)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Absurd limits must not error, just clamp.
	if _, err := repo.History(ctx, reading.Filter{Limit: 100000}); err != nil {
		t.Errorf("History(limit=100000) error = %v", err)
	}
	if _, err := repo.History(ctx, reading.Filter{Limit: -5, Offset: -3}); err != nil {
		t.Errorf("History(negative) error = %v", err)
	}
}

func TestHistory_FilterByStream(t *testing.T) {
	db := openTestDB(t)
	repo := reading.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if err := repo.Save(ctx, &reading.SensorReading{SensorID: reading.StreamDHT22, Temperature: floatPtr(21)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Save(ctx, &reading.SensorReading{SensorID: reading.StreamMQ2, Gas: floatPtr(200)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	readings, err := repo.History(ctx, reading.Filter{SensorID: reading.StreamMQ2})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("History(MQ2) length = %d, want 1", len(readings))
	}
	if readings[0].SensorID != reading.StreamMQ2 {
		t.Errorf("History(MQ2) sensor = %q", readings[0].SensorID)
	}
}
