package engine

import (
	"math/rand"
	"time"

	"github.com/rcliao/eliza/internal/model"
)

// Session is one conversation: rotation cursors, memory and last input. It
// is not safe for concurrent use; callers serialize turns.
type Session struct {
	engine    *Engine
	mem       Memory
	cursors   []int
	lastInput string
	turns     int
	rng       *rand.Rand
}

// NewSession starts a conversation with every cursor at zero, or restores
// cursors from state. Cursors for decompositions no longer in the script
// are dropped.
func (e *Engine) NewSession(mem Memory, state *model.SessionState) *Session {
	seed := e.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		engine:  e,
		mem:     mem,
		cursors: make([]int, len(e.rules.Decompositions())),
		rng:     rand.New(rand.NewSource(seed)),
	}
	if state != nil {
		for _, d := range e.rules.Decompositions() {
			if v, ok := state.Cursors[d.Ref]; ok && v > 0 {
				s.cursors[d.ID] = v
			}
		}
		s.lastInput = state.LastInput
		s.turns = state.Turns
	}
	return s
}

// nextTemplate returns the decomposition's current template and advances
// its cursor.
func (s *Session) nextTemplate(d *model.Decomposition) model.Reassembly {
	i := s.cursors[d.ID]
	s.cursors[d.ID] = i + 1
	return d.Templates[i%len(d.Templates)]
}

// State snapshots the session for persistence. Only advanced cursors are
// included.
func (s *Session) State(ns string) model.SessionState {
	cursors := map[string]int{}
	for _, d := range s.engine.rules.Decompositions() {
		if v := s.cursors[d.ID]; v > 0 {
			cursors[d.Ref] = v
		}
	}
	return model.SessionState{
		NS:        ns,
		Cursors:   cursors,
		LastInput: s.lastInput,
		Turns:     s.turns,
		UpdatedAt: time.Now().UTC(),
	}
}

// LastInput returns the most recent non-quit utterance.
func (s *Session) LastInput() string {
	return s.lastInput
}

// Turns counts answered utterances.
func (s *Session) Turns() int {
	return s.turns
}

// Memory returns the session's memory store.
func (s *Session) Memory() Memory {
	return s.mem
}

// Initial picks an opening line.
func (s *Session) Initial() string {
	return s.pick(s.engine.rules.Initials)
}

// Final picks a closing line.
func (s *Session) Final() string {
	return s.pick(s.engine.rules.Finals)
}

func (s *Session) pick(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[s.rng.Intn(len(lines))]
}
