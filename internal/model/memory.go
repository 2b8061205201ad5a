// Package model defines the rule tables and conversation data types.
package model

import "time"

// MemoryEntry pairs a captured key phrase with the full reply synthesized
// when it was saved.
type MemoryEntry struct {
	ID        string    `json:"id"`
	NS        string    `json:"ns"`
	Phrase    string    `json:"phrase"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionState is the persisted form of a conversation's mutable state.
// Cursors are keyed by Decomposition.Ref.
type SessionState struct {
	NS        string         `json:"ns"`
	Cursors   map[string]int `json:"cursors"`
	LastInput string         `json:"last_input,omitempty"`
	Turns     int            `json:"turns"`
	UpdatedAt time.Time      `json:"updated_at"`
}
