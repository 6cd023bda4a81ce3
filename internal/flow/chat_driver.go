package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SGGuide/internal/genai"
	"github.com/BTreeMap/SGGuide/internal/models"
)

// ErrorPrefix starts every assistant turn recorded for a failed completion.
const ErrorPrefix = "⚠️ Error: "

// ChatDriver answers user messages with the completion client.
type ChatDriver struct {
	client    genai.ClientInterface
	params    models.CompletionParams
	followUps FollowUpPolicy
}

// ChatDriverOption configures a ChatDriver.
type ChatDriverOption func(*ChatDriver)

// WithCompletionParams overrides the model, token limit and temperature.
func WithCompletionParams(p models.CompletionParams) ChatDriverOption {
	return func(d *ChatDriver) { d.params = p }
}

// WithFollowUpPolicy sets how follow-up questions are produced.
func WithFollowUpPolicy(p FollowUpPolicy) ChatDriverOption {
	return func(d *ChatDriver) { d.followUps = p }
}

// NewChatDriver creates a driver using the default completion parameters.
func NewChatDriver(client genai.ClientInterface, opts ...ChatDriverOption) *ChatDriver {
	d := &ChatDriver{
		client: client,
		params: models.DefaultCompletionParams(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ForVariant returns a copy of d using v's follow-up policy.
func (d *ChatDriver) ForVariant(v *Variant) *ChatDriver {
	cp := *d
	cp.followUps = v.FollowUps
	return &cp
}

// Ask appends userMessage to the log, sends the whole log to the model and
// appends the reply. A failed call is recorded as an assistant turn starting
// with ErrorPrefix; it is never retried. The returned reply is the text
// appended last, and the returned log is the one passed in.
func (d *ChatDriver) Ask(ctx context.Context, userMessage string, log *ConversationLog) (string, *ConversationLog) {
	log.AppendUser(userMessage)

	text, err := d.client.Complete(ctx, log.Turns(), d.params)
	if err != nil {
		reply := FormatCallError(err)
		slog.Warn("ChatDriver.Ask: completion failed", "error", err, "turns", log.Len())
		log.AppendAssistant(reply)
		return reply, log
	}

	reply := strings.TrimSpace(text)
	if d.followUps == FollowUpsStatic {
		reply += StaticFollowUps
	}
	log.AppendAssistant(reply)
	slog.Debug("ChatDriver.Ask: reply appended", "turns", log.Len(), "length", len(reply))
	return reply, log
}

// FormatCallError renders a failed completion as the text shown to the user.
func FormatCallError(err error) string {
	var ce *genai.CallError
	if errors.As(err, &ce) {
		return ErrorPrefix + ce.Description
	}
	return ErrorPrefix + err.Error()
}
