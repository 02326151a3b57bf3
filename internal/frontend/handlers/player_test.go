package handlers_test

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/frontend/handlers"
	"github.com/cory-johannsen/skirmish/internal/frontend/telnet"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
)

type transcript struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (tr *transcript) String() string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.buf.String()
}

func (tr *transcript) drain(c net.Conn) {
	b := make([]byte, 512)
	for {
		n, err := c.Read(b)
		tr.mu.Lock()
		tr.buf.Write(b[:n])
		tr.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func testCatalog(t *testing.T) *gameserver.Catalog {
	t.Helper()
	skills := skill.NewRegistry()
	require.NoError(t, skills.Register(&skill.Def{
		ID: skill.BasicAttack, Name: "Attack", Stat: combat.StatStrength,
		DamageKind: combat.DamageTrue, Damage: dice.MustParse("1d1"),
	}))
	stats := combat.Stats{
		Attributes: combat.Attributes{Vitality: 10, Strength: 10},
		Offense:    combat.Offense{AttackSpeedMs: 1000},
	}
	return &gameserver.Catalog{
		Skills:     skills,
		Conditions: condition.NewRegistry(),
		Classes:    skill.NewBook(),
		Templates: []*npc.Template{
			{ID: "brawler", Name: "Brawler", Description: "Fists first.", Stats: stats, Skills: []string{skill.BasicAttack}},
			{ID: "dummy", Name: "Dummy", Stats: stats, Skills: []string{skill.BasicAttack}, Spawns: []npc.SpawnPoint{{Room: "pit", Count: 1}}},
		},
	}
}

func newSimulation(t *testing.T) (*gameserver.Simulation, *gameserver.Catalog) {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)
	cfg.Scripting.ScriptDir = ""

	cat := testCatalog(t)
	logger := zap.NewNop()
	sim, bridge, err := gameserver.Assemble(cfg, cat, dice.NewLoggedRoller(dice.NewFixedSource(0), logger), nil, logger)
	require.NoError(t, err)
	t.Cleanup(bridge.Close)
	require.Equal(t, 1, sim.Populate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = gameserver.NewTicker(5*time.Millisecond, sim.Tick).Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sim, cat
}

func TestPlayerHandler_JoinFightQuit(t *testing.T) {
	sim, cat := newSimulation(t)
	h := handlers.NewPlayerHandler(sim, cat, "pit", zaptest.NewLogger(t))

	server, client := net.Pipe()
	defer client.Close()
	var out transcript
	go out.drain(client)

	result := make(chan error, 1)
	go func() { result <- h.HandleSession(context.Background(), telnet.NewConn(server, 0, 0)) }()

	say := func(line string) {
		_, err := client.Write([]byte(line + "\r\n"))
		require.NoError(t, err)
	}
	shows := func(s string) func() bool {
		return func() bool { return strings.Contains(out.String(), s) }
	}

	require.Eventually(t, shows("What is your name?"), 2*time.Second, 5*time.Millisecond)
	say("x")
	require.Eventually(t, shows("Names must be 2 to 16 letters long."), 2*time.Second, 5*time.Millisecond)
	say("Alice")
	require.Eventually(t, shows("Choice: "), 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "Brawler: Fists first.")
	assert.NotContains(t, out.String(), "Dummy")
	say("1")
	require.Eventually(t, shows("Alice: health 100/100"), 2*time.Second, 5*time.Millisecond)

	say("attack dummy")
	require.Eventually(t, shows("You use Attack on Dummy.\r\n"), 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, shows("Alice hits Dummy for 11 true damage."), 2*time.Second, 5*time.Millisecond)

	say("quit")
	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not end")
	}
	assert.Contains(t, out.String(), "Farewell.")
}

func TestNewPlayerHandler_RequiresArchetype(t *testing.T) {
	sim, cat := newSimulation(t)
	cat.Templates = cat.Templates[1:]
	assert.Panics(t, func() { handlers.NewPlayerHandler(sim, cat, "pit", zap.NewNop()) })
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, handlers.ValidateName("Alice"))
	assert.Error(t, handlers.ValidateName("A"))
	assert.Error(t, handlers.ValidateName("Al1ce"))
	assert.Error(t, handlers.ValidateName("Quit"))
	assert.Error(t, handlers.ValidateName(strings.Repeat("a", 17)))
}

func TestPickArchetype(t *testing.T) {
	ids := []string{"mage_recruit", "rogue_recruit"}
	got, ok := handlers.PickArchetype(ids, "2")
	assert.True(t, ok)
	assert.Equal(t, "rogue_recruit", got)
	got, ok = handlers.PickArchetype(ids, "MAGE_RECRUIT")
	assert.True(t, ok)
	assert.Equal(t, "mage_recruit", got)
	_, ok = handlers.PickArchetype(ids, "3")
	assert.False(t, ok)
	_, ok = handlers.PickArchetype(ids, "bard")
	assert.False(t, ok)
}

// Property: every in-range number picks exactly the listed id.
func TestPropertyPickArchetype_NumberIndexes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ids := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,8}`), 1, 10, rapid.ID[string]).Draw(rt, "ids")
		i := rapid.IntRange(0, len(ids)-1).Draw(rt, "i")
		got, ok := handlers.PickArchetype(ids, strconv.Itoa(i+1))
		if !ok || got != ids[i] {
			rt.Fatalf("choice %d: got %q, %v", i+1, got, ok)
		}
	})
}
