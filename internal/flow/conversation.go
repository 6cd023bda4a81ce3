package flow

import (
	"fmt"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// ConversationLog is the ordered list of turns replayed to the model. It
// holds at most one system turn, and only at index 0.
type ConversationLog struct {
	turns []models.Turn
}

// NewConversationLog creates an empty log.
func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

// LogFromTurns rebuilds a log from stored turns, rejecting any that break
// the single leading system turn rule.
func LogFromTurns(turns []models.Turn) (*ConversationLog, error) {
	for i, t := range turns {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("turn %d: %w", i, err)
		}
		if t.Role == models.RoleSystem && i != 0 {
			return nil, fmt.Errorf("turn %d: %w", i, ErrCorruptLog)
		}
	}
	l := &ConversationLog{turns: make([]models.Turn, len(turns))}
	copy(l.turns, turns)
	return l, nil
}

// HasSystem reports whether index 0 is the system turn.
func (l *ConversationLog) HasSystem() bool {
	return len(l.turns) > 0 && l.turns[0].Role == models.RoleSystem
}

// SetSystem replaces the system turn in place, or inserts it at index 0
// when the log has none yet.
func (l *ConversationLog) SetSystem(content string) {
	if l.HasSystem() {
		l.turns[0].Content = content
		return
	}
	l.turns = append([]models.Turn{{Role: models.RoleSystem, Content: content}}, l.turns...)
}

// System returns the content of the system turn, or "" when there is none.
func (l *ConversationLog) System() string {
	if !l.HasSystem() {
		return ""
	}
	return l.turns[0].Content
}

// AppendUser adds a user turn.
func (l *ConversationLog) AppendUser(content string) {
	l.turns = append(l.turns, models.Turn{Role: models.RoleUser, Content: content})
}

// AppendAssistant adds an assistant turn.
func (l *ConversationLog) AppendAssistant(content string) {
	l.turns = append(l.turns, models.Turn{Role: models.RoleAssistant, Content: content})
}

// Len returns the number of turns, including the system turn.
func (l *ConversationLog) Len() int {
	return len(l.turns)
}

// Turns returns a copy of all turns.
func (l *ConversationLog) Turns() []models.Turn {
	out := make([]models.Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Transcript returns the turns shown to the user: everything but the system turn.
func (l *ConversationLog) Transcript() []models.Turn {
	start := 0
	if l.HasSystem() {
		start = 1
	}
	out := make([]models.Turn, len(l.turns)-start)
	copy(out, l.turns[start:])
	return out
}

// Last returns the final turn.
func (l *ConversationLog) Last() (models.Turn, bool) {
	if len(l.turns) == 0 {
		return models.Turn{}, false
	}
	return l.turns[len(l.turns)-1], true
}
