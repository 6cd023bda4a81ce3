package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ResponseAction turns a user's message into the reply to send back. from is
// the canonicalized sender.
type ResponseAction func(ctx context.Context, from, text string) (reply string, err error)

// errorReply is sent when the action fails.
const errorReply = "⚠️ We encountered an issue processing your message. Please try again."

// ResponseHandler reads inbound messages from a Service, runs the action for
// each one and sends the reply.
type ResponseHandler struct {
	msgService Service
	action     ResponseAction
	wg         sync.WaitGroup
}

// NewResponseHandler creates a new ResponseHandler with the given messaging service.
func NewResponseHandler(msgService Service, action ResponseAction) *ResponseHandler {
	return &ResponseHandler{msgService: msgService, action: action}
}

// ProcessResponse runs the action for msg and sends the reply.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, msg InboundMessage) error {
	from, err := rh.msgService.ValidateAndCanonicalizeRecipient(msg.From)
	if err != nil {
		slog.Error("ResponseHandler ProcessResponse validation failed", "error", err, "from", msg.From)
		return fmt.Errorf("invalid sender: %w", err)
	}
	slog.Debug("ResponseHandler processing message", "from", from, "body_length", len(msg.Body))

	reply, err := rh.action(ctx, from, msg.Body)
	if err != nil {
		slog.Error("ResponseHandler action failed", "error", err, "from", from)
		if sendErr := rh.msgService.SendMessage(ctx, from, errorReply); sendErr != nil {
			slog.Error("ResponseHandler failed to send error message", "error", sendErr, "from", from)
		}
		return fmt.Errorf("action failed: %w", err)
	}
	if reply == "" {
		return nil
	}
	if err := rh.msgService.SendMessage(ctx, from, reply); err != nil {
		slog.Error("ResponseHandler failed to send reply", "error", err, "from", from)
		return fmt.Errorf("failed to send reply: %w", err)
	}
	slog.Info("ResponseHandler reply sent", "from", from)
	return nil
}

// Run processes messages until ctx is cancelled or the service closes its
// channel, then waits for in-flight messages. Each message is handled on its
// own goroutine so one slow completion does not hold up other users.
func (rh *ResponseHandler) Run(ctx context.Context) error {
	slog.Info("ResponseHandler starting response processing")
	defer slog.Info("ResponseHandler stopped response processing")
	defer rh.wg.Wait()

	for {
		select {
		case msg, ok := <-rh.msgService.Responses():
			if !ok {
				slog.Debug("ResponseHandler responses channel closed")
				return nil
			}
			rh.wg.Add(1)
			go func() {
				defer rh.wg.Done()
				if err := rh.ProcessResponse(ctx, msg); err != nil {
					slog.Error("ResponseHandler failed to process message", "error", err, "from", msg.From)
				}
			}()
		case <-ctx.Done():
			slog.Debug("ResponseHandler stopping due to context cancellation")
			return nil
		}
	}
}
