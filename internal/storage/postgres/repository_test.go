package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func TestRepositories(t *testing.T) {
	db := testutil.NewPool(t)
	logs := postgres.NewCombatLogRepository(db)
	snaps := postgres.NewSnapshotRepository(db)
	ctx := context.Background()

	t.Run("combat log append and recent", func(t *testing.T) {
		alice := uniqueName("alice")
		n, err := logs.Append(ctx, []postgres.CombatLogRecord{
			{Tick: 1, Kind: "used", SourceName: alice, TargetName: "bob", Message: "slash"},
			{Tick: 1, Kind: "damaged", SourceName: alice, TargetName: "bob", Damage: 7, DamageKind: "physical", Crit: true},
			{Tick: 2, Kind: "dodged", SourceName: "bob", TargetName: alice},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		got, err := logs.Recent(ctx, alice, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "dodged", got[0].Kind, "newest first")
		assert.Equal(t, 7, got[1].Damage)
		assert.True(t, got[1].Crit)
		assert.False(t, got[1].CreatedAt.IsZero())

		got, err = logs.Recent(ctx, alice, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("append nothing", func(t *testing.T) {
		n, err := logs.Append(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("snapshot upsert", func(t *testing.T) {
		name := uniqueName("hero")
		require.NoError(t, snaps.SaveAll(ctx, []postgres.Snapshot{{Name: name, Class: "duelist", RoomID: "pit", Level: 2, Health: 30, Vigor: 10}}))
		require.NoError(t, snaps.SaveAll(ctx, []postgres.Snapshot{{Name: name, Class: "duelist", RoomID: "sanctuary", Level: 2, Health: 50, Vigor: 40}}))

		got, err := snaps.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, "sanctuary", got.RoomID)
		assert.Equal(t, 50, got.Health)
	})

	t.Run("snapshot missing", func(t *testing.T) {
		_, err := snaps.Load(ctx, uniqueName("ghost"))
		assert.ErrorIs(t, err, postgres.ErrCombatantNotFound)
	})

	t.Run("snapshot property round trip", func(t *testing.T) {
		rapid.Check(t, func(rt *rapid.T) {
			s := postgres.Snapshot{
				Name:    uniqueName(rapid.StringMatching(`[a-z]{3,8}`).Draw(rt, "name")),
				Class:   rapid.SampledFrom([]string{"duelist", "brute", ""}).Draw(rt, "class"),
				Mastery: rapid.IntRange(0, 5).Draw(rt, "mastery"),
				RoomID:  rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "room"),
				Level:   rapid.IntRange(1, 50).Draw(rt, "level"),
				Health:  rapid.IntRange(0, 500).Draw(rt, "health"),
				Vigor:   rapid.IntRange(0, 500).Draw(rt, "vigor"),
			}
			if err := snaps.SaveAll(ctx, []postgres.Snapshot{s}); err != nil {
				rt.Fatalf("save: %v", err)
			}
			got, err := snaps.Load(ctx, s.Name)
			if err != nil {
				rt.Fatalf("load: %v", err)
			}
			got.UpdatedAt = time.Time{}
			if got != s {
				rt.Fatalf("got %+v, want %+v", got, s)
			}
		})
	})

	t.Run("async writer against the database", func(t *testing.T) {
		w := postgres.NewAsyncWriter(logs, snaps, 4, zap.NewNop())
		wctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- w.Run(wctx) }()

		name := uniqueName("writer")
		require.True(t, w.Submit(postgres.Job{
			Tick:      9,
			Logs:      []postgres.CombatLogRecord{{Tick: 9, Kind: "used", SourceName: name, TargetName: "dummy"}},
			Snapshots: []postgres.Snapshot{{Name: name, RoomID: "pit", Level: 1, Health: 10}},
		}))
		cancel()
		<-done

		comps := w.Completions()
		require.Len(t, comps, 1)
		require.NoError(t, comps[0].Err)
		got, err := logs.Recent(ctx, name, 5)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
