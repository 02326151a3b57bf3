// Package handlers runs the per-connection lobby: it names the player,
// builds them from an archetype, joins them to the simulation and relays
// lines until they quit or disconnect.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/frontend/telnet"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
)

const (
	minNameLen = 2
	maxNameLen = 16
	// sessionBuffer is the per-player outbound message capacity.
	sessionBuffer = 256
)

// PlayerHandler implements telnet.SessionHandler over a Simulation.
type PlayerHandler struct {
	sim    *gameserver.Simulation
	cat    *gameserver.Catalog
	room   string
	logger *zap.Logger
}

// NewPlayerHandler creates a handler that places players in room.
//
// Precondition: sim, cat and logger must be non-nil; cat must offer at
// least one archetype.
func NewPlayerHandler(sim *gameserver.Simulation, cat *gameserver.Catalog, room string, logger *zap.Logger) *PlayerHandler {
	if sim == nil || cat == nil || logger == nil {
		panic("handlers.NewPlayerHandler: sim, cat and logger must be non-nil")
	}
	if len(cat.Archetypes()) == 0 {
		panic("handlers.NewPlayerHandler: catalog has no archetypes")
	}
	return &PlayerHandler{sim: sim, cat: cat, room: room, logger: logger}
}

// ValidateName reports why name cannot be used, or nil.
func ValidateName(name string) error {
	if n := len([]rune(name)); n < minNameLen || n > maxNameLen {
		return fmt.Errorf("Names must be %d to %d letters long.", minNameLen, maxNameLen)
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return errors.New("Names may only contain letters.")
		}
	}
	if strings.EqualFold(name, "quit") {
		return errors.New("That name is reserved.")
	}
	return nil
}

// HandleSession runs one connection from greeting to disconnect.
func (h *PlayerHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightYellow, "Welcome to the pit."))
	name, ok, err := h.askName(conn)
	if err != nil || !ok {
		return err
	}
	archetype, ok, err := h.askArchetype(conn)
	if err != nil || !ok {
		return err
	}
	player, err := gameserver.NewPlayer(h.cat, name, archetype, h.room)
	if err != nil {
		return err
	}
	sess := session.NewBridgeEntity(name, sessionBuffer)
	done := h.sim.SubmitJoin(player, sess)
	select {
	case err := <-done:
		if err != nil {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, "The pit is full; try again later."))
			return err
		}
	case <-ctx.Done():
		go func() {
			if <-done == nil {
				h.sim.SubmitLeave(player.Handle)
			}
		}()
		return ctx.Err()
	}
	h.logger.Info("player entered", zap.String("name", name), zap.String("archetype", archetype))

	console := gameserver.NewConsole(h.sim, h.cat.Skills, player.Handle, sess, conn, h.logger)
	pumpCtx, stopPump := context.WithCancel(ctx)
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		_ = console.Pump(pumpCtx)
	}()
	defer func() {
		h.sim.SubmitLeave(player.Handle)
		stopPump()
		<-pumped
		h.logger.Info("player left", zap.String("name", name))
	}()

	h.sim.SubmitStatus(player.Handle)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		if console.Line(line) {
			_ = conn.WriteLine("Farewell.")
			return nil
		}
	}
}

func (h *PlayerHandler) askName(conn *telnet.Conn) (string, bool, error) {
	for {
		_ = conn.WritePrompt("What is your name? ")
		line, err := conn.ReadLine()
		if err != nil {
			return "", false, err
		}
		name := strings.TrimSpace(line)
		if strings.EqualFold(name, "quit") {
			return "", false, nil
		}
		if err := ValidateName(name); err != nil {
			_ = conn.WriteLine(telnet.Colorize(telnet.Red, err.Error()))
			continue
		}
		return name, true, nil
	}
}

func (h *PlayerHandler) askArchetype(conn *telnet.Conn) (string, bool, error) {
	ids := h.cat.Archetypes()
	_ = conn.WriteLine(telnet.Colorize(telnet.BrightWhite, "Choose how you fight:"))
	for i, id := range ids {
		_ = conn.WriteLine(fmt.Sprintf("  %s. %s", telnet.Colorize(telnet.Green, strconv.Itoa(i+1)), h.describe(id)))
	}
	for {
		_ = conn.WritePrompt("Choice: ")
		line, err := conn.ReadLine()
		if err != nil {
			return "", false, err
		}
		choice := strings.TrimSpace(line)
		if strings.EqualFold(choice, "quit") {
			return "", false, nil
		}
		if id, ok := PickArchetype(ids, choice); ok {
			return id, true, nil
		}
		_ = conn.WriteLine(telnet.Colorize(telnet.Red, fmt.Sprintf("Pick a number from 1 to %d.", len(ids))))
	}
}

func (h *PlayerHandler) describe(id string) string {
	for _, t := range h.cat.Templates {
		if t.ID == id {
			return fmt.Sprintf("%s: %s", t.Name, t.Description)
		}
	}
	return id
}

// PickArchetype resolves a menu choice given as a 1-based number or an id.
func PickArchetype(ids []string, choice string) (string, bool) {
	if n, err := strconv.Atoi(choice); err == nil {
		if n >= 1 && n <= len(ids) {
			return ids[n-1], true
		}
		return "", false
	}
	for _, id := range ids {
		if strings.EqualFold(id, choice) {
			return id, true
		}
	}
	return "", false
}
