package action_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/homelink-bridge/internal/action"
	"github.com/nerrad567/homelink-bridge/internal/infrastructure/database"
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

func TestAppend_GeneratesIDAndTimestamp(t *testing.T) {
	db := openTestDB(t)
	repo := action.NewSQLiteRepository(db.DB)

	a := &action.Action{
		ComponentID: "fan_lr",
		Action:      "set_speed",
		Value:       "50",
		UserID:      "user-1",
		State:       "speed set to 50%",
	}

	if err := repo.Append(context.Background(), a); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !strings.HasPrefix(a.ID, "act-") {
		t.Errorf("Append() ID = %q, want act- prefix", a.ID)
	}
	if a.Timestamp.IsZero() {
		t.Error("Append() did not set Timestamp")
	}
}

func TestAppend_RequiredFields(t *testing.T) {
	db := openTestDB(t)
	repo := action.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	tests := []struct {
		name string
		a    *action.Action
	}{
		{name: "nil action", a: nil},
		{name: "missing component", a: &action.Action{Action: "open", UserID: "u1"}},
		{name: "missing verb", a: &action.Action{ComponentID: "shutter_lr", UserID: "u1"}},
		{name: "missing user", a: &action.Action{ComponentID: "shutter_lr", Action: "open"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Append(ctx, tt.a)
			if !errors.Is(err, action.ErrInvalid) {
				t.Errorf("Append() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestAppend_PreservesProvidedID(t *testing.T) {
	db := openTestDB(t)
	repo := action.NewSQLiteRepository(db.DB)

	a := &action.Action{
		ID:          "act-fixed01",
		ComponentID: "lamp_br",
		Action:      "on",
		UserID:      "user-2",
	}
	if err := repo.Append(context.Background(), a); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if a.ID != "act-fixed01" {
		t.Errorf("Append() overwrote ID: %q", a.ID)
	}
}

func TestList_Empty(t *testing.T) {
	db := openTestDB(t)
	repo := action.NewSQLiteRepository(db.DB)

	result, err := repo.List(context.Background(), action.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 0 {
		t.Errorf("List() total = %d, want 0", result.Total)
	}
	if result.Actions == nil {
		t.Error("List() actions = nil, want empty slice")
	}
	if result.Limit != 50 {
		t.Errorf("List() limit = %d, want default 50", result.Limit)
	}
}

func TestList_FilterAndOrder(t *testing.T) {
	db := openTestDB(t)
	repo := action.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	entries := []*action.Action{
		{ComponentID: "fan_lr", Action: "set_speed", Value: "30", UserID: "u1", Timestamp: base},
		{ComponentID: "shutter_lr", Action: "close", Value: "5", UserID: "u1", State: "moved -5 steps", Timestamp: base.Add(time.Minute)},
		{ComponentID: "fan_lr", Action: "set_speed", Value: "80", UserID: "u2", Timestamp: base.Add(2 * time.Minute)},
	}
	for _, a := range entries {
		if err := repo.Append(ctx, a); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	result, err := repo.List(ctx, action.Filter{ComponentID: "fan_lr"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("List(fan_lr) total = %d, want 2", result.Total)
	}
	// Newest first.
	if result.Actions[0].Value != "80" {
		t.Errorf("List()[0] value = %q, want 80", result.Actions[0].Value)
	}

	result, err = repo.List(ctx, action.Filter{UserID: "u2"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Errorf("List(u2) total = %d, want 1", result.Total)
	}

	result, err = repo.List(ctx, action.Filter{ComponentID: "shutter_lr", Action: "close"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("List(shutter_lr, close) total = %d, want 1", result.Total)
	}
	if result.Actions[0].State != "moved -5 steps" {
		t.Errorf("List()[0] state = %q", result.Actions[0].State)
	}
}

func TestList_Pagination(t *testing.T) {
	db := openTestDB(t)
	repo := action.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := &action.Action{
			ComponentID: "led_strip",
			Action:      "set_brightness",
			Value:       "10",
			UserID:      "u1",
			Timestamp:   base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(ctx, a); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	result, err := repo.List(ctx, action.Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 5 {
		t.Errorf("List() total = %d, want 5", result.Total)
	}
	if len(result.Actions) != 2 {
		t.Errorf("List() page length = %d, want 2", len(result.Actions))
	}
	if result.Offset != 2 {
		t.Errorf("List() offset = %d, want 2", result.Offset)
	}
}

func TestList_NullableFieldsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := action.NewSQLiteRepository(db.DB)
	ctx := context.Background()

	a := &action.Action{
		ComponentID: "lamp_br",
		Action:      "off",
		Value:       "off",
		UserID:      "u1",
		State:       "turned off",
	}
	if err := repo.Append(ctx, a); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	result, err := repo.List(ctx, action.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := result.Actions[0]
	if got.State != "turned off" {
		t.Errorf("State = %q, want %q", got.State, "turned off")
	}
	if got.EnergyConsumption != "" {
		t.Errorf("EnergyConsumption = %q, want empty", got.EnergyConsumption)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}
