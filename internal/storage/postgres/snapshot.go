package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCombatantNotFound is returned when a snapshot lookup yields no results.
var ErrCombatantNotFound = errors.New("combatant not found")

// Snapshot is the persisted state of a player combatant between sessions.
type Snapshot struct {
	Name      string
	Class     string
	Mastery   int
	RoomID    string
	Level     int
	Health    int
	Vigor     int
	UpdatedAt time.Time
}

// SnapshotRepository saves and loads player snapshots.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	if db == nil {
		panic("postgres.NewSnapshotRepository: db must not be nil")
	}
	return &SnapshotRepository{db: db}
}

// SaveAll upserts every snapshot in one batch.
//
// Precondition: each Name must be non-empty.
func (r *SnapshotRepository) SaveAll(ctx context.Context, snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, s := range snaps {
		if s.Name == "" {
			return fmt.Errorf("saving snapshot: name must not be empty")
		}
		batch.Queue(`
			INSERT INTO combatant_snapshots (name, class, mastery, room_id, level, health, vigor, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
			ON CONFLICT (name) DO UPDATE SET
				class = EXCLUDED.class, mastery = EXCLUDED.mastery, room_id = EXCLUDED.room_id,
				level = EXCLUDED.level, health = EXCLUDED.health, vigor = EXCLUDED.vigor,
				updated_at = NOW()`,
			s.Name, s.Class, s.Mastery, s.RoomID, s.Level, s.Health, s.Vigor,
		)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving snapshots: %w", err)
	}
	return nil
}

// Load returns the snapshot for name.
//
// Postcondition: Returns ErrCombatantNotFound when no row exists.
func (r *SnapshotRepository) Load(ctx context.Context, name string) (Snapshot, error) {
	var s Snapshot
	err := r.db.QueryRow(ctx, `
		SELECT name, class, mastery, room_id, level, health, vigor, updated_at
		FROM combatant_snapshots WHERE name = $1`,
		name,
	).Scan(&s.Name, &s.Class, &s.Mastery, &s.RoomID, &s.Level, &s.Health, &s.Vigor, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrCombatantNotFound
		}
		return Snapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}
	return s, nil
}
