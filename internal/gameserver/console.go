package gameserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// Console connects one player to a line-oriented reader and writer. Input
// lines become submitted commands; delivered text is written out as it
// arrives.
type Console struct {
	sim    *Simulation
	reg    *command.Registry
	skills *skill.Registry
	player entity.Handle
	sess   *session.BridgeEntity
	logger *zap.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewConsole binds player's session to out.
//
// Precondition: sim, skills, sess, out and logger must be non-nil.
func NewConsole(sim *Simulation, skills *skill.Registry, player entity.Handle, sess *session.BridgeEntity, out io.Writer, logger *zap.Logger) *Console {
	if sim == nil || skills == nil || sess == nil || out == nil || logger == nil {
		panic("gameserver.NewConsole: all arguments must be non-nil")
	}
	return &Console{
		sim:    sim,
		reg:    command.DefaultRegistry(),
		skills: skills,
		player: player,
		sess:   sess,
		logger: logger,
		out:    out,
	}
}

func (c *Console) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// Pump writes delivered text to out until ctx is cancelled or the session
// closes.
func (c *Console) Pump(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-c.sess.Events():
			if !ok {
				return nil
			}
			c.println(text)
		}
	}
}

// Read consumes lines from in until EOF or "quit".
//
// Postcondition: returns nil on EOF or quit, or the reader's error.
func (c *Console) Read(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if quit := c.Line(scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

// Line handles one input line and reports whether the player quit.
func (c *Console) Line(line string) bool {
	in := command.Parse(line)
	if in.Empty() {
		return false
	}
	cmd, err := command.Translate(c.reg, c.player, in, c.isSkill)
	switch {
	case err == nil:
		if !c.sim.Submit(cmd) {
			c.println("The world is busy; try again.")
		}
	case errors.Is(err, command.ErrNotCombat):
		found, _ := c.reg.Resolve(in.Verb)
		switch found.Handler {
		case command.HandlerQuit:
			return true
		case command.HandlerStatus:
			c.sim.SubmitStatus(c.player)
		case command.HandlerHelp:
			c.println(c.help())
		}
	default:
		c.logger.Debug("console input rejected", zap.String("line", line), zap.Error(err))
		c.println(err.Error())
	}
	return false
}

func (c *Console) isSkill(token string) bool {
	for _, d := range c.skills.All() {
		if d.Matches(token) {
			return true
		}
	}
	return false
}

func (c *Console) help() string {
	var b strings.Builder
	_ = c.reg.WriteHelp(&b)
	return strings.TrimRight(b.String(), "\n")
}
