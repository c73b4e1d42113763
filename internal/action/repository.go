package action

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Repository defines the interface for action record operations.
type Repository interface {
	Append(ctx context.Context, a *Action) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores action records in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new action repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts a new action record. The ID and Timestamp are generated
// if empty. The command relay calls this before publishing to the broker;
// on failure the publish is skipped.
func (r *SQLiteRepository) Append(ctx context.Context, a *Action) error {
	if a == nil {
		return fmt.Errorf("%w: action is nil", ErrInvalid)
	}
	if a.ComponentID == "" {
		return fmt.Errorf("%w: component id is required", ErrInvalid)
	}
	if a.Action == "" {
		return fmt.Errorf("%w: action verb is required", ErrInvalid)
	}
	if a.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalid)
	}
	if a.ID == "" {
		a.ID = "act-" + uuid.NewString()[:8]
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actions (id, timestamp, component_id, action, value, user_id, state, energy_consumption, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Timestamp.UTC().Format(time.RFC3339Nano),
		a.ComponentID, a.Action,
		nullableString(a.Value),
		a.UserID,
		nullableString(a.State),
		nullableString(a.EnergyConsumption),
		nullableString(a.Error),
	)
	if err != nil {
		return fmt.Errorf("%w: inserting action: %w", ErrStorage, err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns actions matching the filter, ordered by most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.ComponentID != "" {
		conditions = append(conditions, "component_id = ?")
		args = append(args, filter.ComponentID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE clause is built from parameterised conditions (? placeholders) — no user input in SQL string.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM actions %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: counting actions: %w", ErrStorage, err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, timestamp, component_id, action, value, user_id, state, energy_consumption, error FROM actions %s ORDER BY timestamp DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying actions: %w", ErrStorage, err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var a Action
		var value, state, energy, actionErr sql.NullString
		var timestamp string

		if err := rows.Scan(&a.ID, &timestamp, &a.ComponentID, &a.Action,
			&value, &a.UserID, &state, &energy, &actionErr); err != nil {
			return nil, fmt.Errorf("%w: scanning action: %w", ErrStorage, err)
		}

		if value.Valid {
			a.Value = value.String
		}
		if state.Valid {
			a.State = state.String
		}
		if energy.Valid {
			a.EnergyConsumption = energy.String
		}
		if actionErr.Valid {
			a.Error = actionErr.String
		}

		t, err := time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			t, err = time.Parse("2006-01-02T15:04:05Z", timestamp)
			if err != nil {
				return nil, fmt.Errorf("%w: parsing action timestamp %q: %w", ErrStorage, timestamp, err)
			}
		}
		a.Timestamp = t

		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating actions: %w", ErrStorage, err)
	}

	if actions == nil {
		actions = []Action{}
	}

	return &ListResult{
		Actions: actions,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
