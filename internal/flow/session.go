package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// Session is the state of one user's conversation: the profile being
// collected, the conversation log and the message awaiting an answer.
//
// A session moves NEED_NAME → ONBOARDING(i) → CHATTING and never goes back.
// Session is not safe for concurrent use; SessionManager serializes access.
type Session struct {
	ID           string
	Variant      *Variant
	Profile      *Profile
	Log          *ConversationLog
	IntroShown   bool
	PendingInput string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSession creates a session at NEED_NAME.
func NewSession(id string, v *Variant) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Variant:   v,
		Profile:   NewProfile(),
		Log:       NewConversationLog(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// State returns the session's stage and, while onboarding, the zero-based
// index of the question being asked.
func (s *Session) State() (models.StateType, int) {
	if !s.Profile.IsSet(models.FieldName) {
		return models.StateNeedName, 0
	}
	if _, pending := s.Variant.NextQuestion(s.Profile); pending {
		step, _ := s.Variant.OnboardingStep(s.Profile)
		return models.StateOnboarding, step
	}
	return models.StateChatting, 0
}

// NextQuestion returns the question to ask, if onboarding is not finished.
func (s *Session) NextQuestion() (Question, bool) {
	return s.Variant.NextQuestion(s.Profile)
}

// SubmitName records the user's name.
func (s *Session) SubmitName(name string) error {
	return s.SubmitAnswer(models.FieldName, name)
}

// SubmitAnswer records the answer to the current onboarding question. The
// answer is logged as a user turn and the system turn is rebuilt; the name
// is stored in the profile only.
func (s *Session) SubmitAnswer(field models.Field, answer string) error {
	q, err := s.expect(field)
	if err != nil {
		slog.Debug("Session.SubmitAnswer: rejected", "session", s.ID, "field", field, "error", err)
		return err
	}
	value, err := q.Normalize(answer)
	if err != nil {
		return err
	}
	if err := s.Profile.Set(field, value); err != nil {
		return err
	}

	if field != models.FieldName {
		s.Log.SetSystem(BuildSystemPrompt(s.Variant, s.Profile))
		s.Log.AppendUser(value)
	}
	slog.Debug("Session.SubmitAnswer: answer recorded", "session", s.ID, "field", field)

	if state, _ := s.State(); state == models.StateChatting {
		s.enterChatting()
	}
	s.touch()
	return nil
}

// expect checks that field is the one the session is waiting for.
func (s *Session) expect(field models.Field) (Question, error) {
	next, pending := s.Variant.NextQuestion(s.Profile)
	if pending && next.Field == field {
		return next, nil
	}
	if s.Profile.IsSet(field) {
		return Question{}, fmt.Errorf("%w: %s", ErrFieldAlreadySet, field)
	}
	if _, known := s.Variant.question(field); !known {
		return Question{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return Question{}, fmt.Errorf("%w: got %s, expected %s", ErrOutOfOrder, field, next.Field)
}

// enterChatting runs once, on the transition into CHATTING.
func (s *Session) enterChatting() {
	if s.IntroShown {
		return
	}
	name := s.Profile.Value(models.FieldName)
	if s.Log.Len() == 0 {
		s.Log.SetSystem(BuildSystemPrompt(s.Variant, s.Profile))
		s.Log.AppendAssistant(Greeting(name))
	}
	s.Log.AppendAssistant(IntroMessage(name, s.Profile.Value(models.FieldIdentity)))
	s.IntroShown = true
	slog.Info("Session.enterChatting: onboarding complete", "session", s.ID, "variant", s.Variant.Name)
}

// CaptureInput holds msg as the pending input. It fails while onboarding is
// incomplete or another message is still waiting for its answer.
func (s *Session) CaptureInput(msg string) error {
	if state, _ := s.State(); state != models.StateChatting {
		return ErrOnboardingIncomplete
	}
	if strings.TrimSpace(msg) == "" {
		return ErrEmptyMessage
	}
	if s.PendingInput != "" {
		return ErrBusy
	}
	s.PendingInput = msg
	s.touch()
	return nil
}

// ResolvePending answers the pending input with driver and clears it. The
// reply, or the error text when the call failed, is returned.
func (s *Session) ResolvePending(ctx context.Context, driver *ChatDriver) (string, error) {
	if s.PendingInput == "" {
		return "", ErrNoPendingInput
	}
	msg := s.PendingInput
	s.Log.SetSystem(BuildSystemPrompt(s.Variant, s.Profile))
	reply, _ := driver.ForVariant(s.Variant).Ask(ctx, msg, s.Log)
	s.PendingInput = ""
	s.touch()
	return reply, nil
}

// Send is CaptureInput followed by ResolvePending.
func (s *Session) Send(ctx context.Context, driver *ChatDriver, msg string) (string, error) {
	if err := s.CaptureInput(msg); err != nil {
		return "", err
	}
	return s.ResolvePending(ctx, driver)
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

// Snapshot serializes the session for the store.
func (s *Session) Snapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		ID:           s.ID,
		Variant:      s.Variant.Name,
		Profile:      s.Profile.Snapshot(),
		Log:          s.Log.Turns(),
		IntroShown:   s.IntroShown,
		PendingInput: s.PendingInput,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// RestoreSession rebuilds a session from a snapshot.
func RestoreSession(snap models.SessionSnapshot) (*Session, error) {
	v, err := LookupVariant(snap.Variant)
	if err != nil {
		return nil, err
	}
	log, err := LogFromTurns(snap.Log)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", snap.ID, err)
	}
	return &Session{
		ID:           snap.ID,
		Variant:      v,
		Profile:      ProfileFromSnapshot(snap.Profile),
		Log:          log,
		IntroShown:   snap.IntroShown,
		PendingInput: snap.PendingInput,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}, nil
}
