package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/models"
)

// RestartCommand ends the sender's session and starts over.
const RestartCommand = "restart"

// SessionPrefix is the default namespace of messaging sessions in the
// session store.
const SessionPrefix = "whatsapp:"

const busyReply = "⏳ Still working on your previous message. Please wait a moment..."

// Conversation drives one session per sender through onboarding and chat
// over a text-only channel. Choice questions are sent as numbered lists and
// accept either the number or the label.
type Conversation struct {
	sessions *flow.SessionManager
	driver   *flow.ChatDriver
	prefix   string
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithSessionPrefix replaces SessionPrefix.
func WithSessionPrefix(prefix string) ConversationOption {
	return func(c *Conversation) { c.prefix = prefix }
}

// NewConversation creates a Conversation over sessions.
func NewConversation(sessions *flow.SessionManager, driver *flow.ChatDriver, opts ...ConversationOption) *Conversation {
	c := &Conversation{sessions: sessions, driver: driver, prefix: SessionPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Respond is a ResponseAction.
func (c *Conversation) Respond(ctx context.Context, from, text string) (string, error) {
	id := c.prefix + from
	text = strings.TrimSpace(text)

	if strings.EqualFold(text, RestartCommand) {
		sess, err := c.sessions.Restart(ctx, id)
		if errors.Is(err, flow.ErrBusy) {
			return busyReply, nil
		}
		if err != nil {
			return "", err
		}
		return flow.PlainText(flow.Render(sess)), nil
	}

	sess, created, err := c.sessions.LoadOrCreate(ctx, id)
	if err != nil {
		return "", err
	}
	if created {
		// the opening message is a greeting, not an answer
		return welcomeText(sess), nil
	}

	var reply string
	sess, err = c.sessions.Do(ctx, id, func(s *flow.Session) error {
		state, _ := s.State()
		switch state {
		case models.StateNeedName:
			return s.SubmitName(text)
		case models.StateOnboarding:
			q, _ := s.NextQuestion()
			return s.SubmitAnswer(q.Field, flow.ChoiceByNumber(q, text))
		default:
			var err error
			reply, err = s.Send(ctx, c.driver, text)
			return err
		}
	})
	switch {
	case errors.Is(err, flow.ErrBusy):
		return busyReply, nil
	case flow.IsValidationError(err):
		slog.Debug("Conversation.Respond: answer rejected", "from", from, "error", err)
		return "⚠️ " + err.Error() + "\n\n" + flow.PlainText(flow.Render(sess)), nil
	case err != nil:
		return "", err
	}

	if reply != "" {
		return reply, nil
	}
	return flow.PlainText(flow.Render(sess)), nil
}

func welcomeText(sess *flow.Session) string {
	return sess.Variant.Title + "\n" + sess.Variant.Tagline + "\n\n" + flow.PlainText(flow.Render(sess))
}
