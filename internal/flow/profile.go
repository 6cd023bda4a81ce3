// Package flow implements the onboarding interview and the chat loop that
// follows it: profile collection, system prompt construction, the
// conversation log and the chat driver, tied together by Session.
package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// Profile holds the onboarding answers of one session. Every field starts
// unset and, once set, stays set for the lifetime of the session.
type Profile struct {
	values map[models.Field]string
}

// NewProfile creates an empty profile.
func NewProfile() *Profile {
	return &Profile{values: make(map[models.Field]string)}
}

// ProfileFromSnapshot rebuilds a profile from stored values, dropping blanks.
func ProfileFromSnapshot(values map[models.Field]string) *Profile {
	p := NewProfile()
	for f, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			p.values[f] = v
		}
	}
	return p
}

// Get returns the value of f and whether it has been set.
func (p *Profile) Get(f models.Field) (string, bool) {
	v, ok := p.values[f]
	return v, ok
}

// Value returns the value of f, or "" when unset.
func (p *Profile) Value(f models.Field) string {
	return p.values[f]
}

// IsSet reports whether f has been answered.
func (p *Profile) IsSet(f models.Field) bool {
	_, ok := p.values[f]
	return ok
}

// Set stores the trimmed value for f. Blank values leave the field unset and
// return ErrEmptyAnswer; fields cannot be overwritten.
func (p *Profile) Set(f models.Field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: %s", ErrEmptyAnswer, f)
	}
	if p.IsSet(f) {
		return fmt.Errorf("%w: %s", ErrFieldAlreadySet, f)
	}
	p.values[f] = value
	return nil
}

// Snapshot returns a copy of the set values.
func (p *Profile) Snapshot() map[models.Field]string {
	out := make(map[models.Field]string, len(p.values))
	for f, v := range p.values {
		out[f] = v
	}
	return out
}
