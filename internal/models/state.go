// Package models defines state management structures for SGGuide sessions.
package models

import "time"

// SessionSnapshot is the serialized form of one live session.
// It is held by the session store between interactions and removed when the
// session ends or goes idle.
type SessionSnapshot struct {
	ID           string           `json:"id"`
	Variant      string           `json:"variant"`
	Profile      map[Field]string `json:"profile,omitempty"`
	Log          []Turn           `json:"log,omitempty"`
	IntroShown   bool             `json:"intro_shown"`
	PendingInput string           `json:"pending_input,omitempty"` // message captured but not yet answered
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
