package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CombatLogRecord is one persisted combat log entry. Names rather than
// handles are stored since handles do not outlive the process.
type CombatLogRecord struct {
	ID          int64
	Tick        uint64
	Kind        string
	SandboxID   string
	TriggerID   string
	SourceName  string
	TargetName  string
	Message     string
	Damage      int
	DamageKind  string
	Crit        bool
	ConditionID string
	CreatedAt   time.Time
}

var combatLogColumns = []string{
	"tick", "kind", "sandbox_id", "trigger_id", "source_name", "target_name",
	"message", "damage", "damage_kind", "crit", "condition_id",
}

// CombatLogRepository appends and reads combat log entries.
type CombatLogRepository struct {
	db *pgxpool.Pool
}

// NewCombatLogRepository creates a CombatLogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCombatLogRepository(db *pgxpool.Pool) *CombatLogRepository {
	if db == nil {
		panic("postgres.NewCombatLogRepository: db must not be nil")
	}
	return &CombatLogRepository{db: db}
}

// Append bulk-inserts records with COPY.
//
// Postcondition: returns the number of rows written.
func (r *CombatLogRepository) Append(ctx context.Context, records []CombatLogRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	n, err := r.db.CopyFrom(ctx, pgx.Identifier{"combat_log"}, combatLogColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{
				int64(rec.Tick), rec.Kind, rec.SandboxID, rec.TriggerID, rec.SourceName, rec.TargetName,
				rec.Message, rec.Damage, rec.DamageKind, rec.Crit, rec.ConditionID,
			}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copying combat log: %w", err)
	}
	return n, nil
}

// Recent returns up to limit entries involving name, newest first.
//
// Precondition: limit > 0.
func (r *CombatLogRepository) Recent(ctx context.Context, name string, limit int) ([]CombatLogRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tick, kind, sandbox_id, trigger_id, source_name, target_name,
		       message, damage, damage_kind, crit, condition_id, created_at
		FROM combat_log
		WHERE source_name = $1 OR target_name = $1
		ORDER BY id DESC
		LIMIT $2`,
		name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying combat log: %w", err)
	}
	defer rows.Close()

	out := make([]CombatLogRecord, 0)
	for rows.Next() {
		var (
			rec  CombatLogRecord
			tick int64
		)
		if err := rows.Scan(
			&rec.ID, &tick, &rec.Kind, &rec.SandboxID, &rec.TriggerID, &rec.SourceName, &rec.TargetName,
			&rec.Message, &rec.Damage, &rec.DamageKind, &rec.Crit, &rec.ConditionID, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning combat log row: %w", err)
		}
		rec.Tick = uint64(tick)
		out = append(out, rec)
	}
	return out, rows.Err()
}
