package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/SGGuide/internal/config"
	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/genai"
	"github.com/BTreeMap/SGGuide/internal/messaging"
	"github.com/BTreeMap/SGGuide/internal/models"
	"github.com/BTreeMap/SGGuide/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(ctx context.Context, turns []models.Turn, params models.CompletionParams) (string, error) {
	return s.reply, nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "SGGUIDE_VARIANT", "SGGUIDE_MODEL", "LOG_LEVEL",
		"DATABASE_URL", "SGGUIDE_DEBUG", "TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_FROM_NUMBER",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func execute(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(input))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestChatCommandRequiresAPIKey(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "", "chat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, genai.ErrMissingAPIKey), err.Error())
}

func TestChatCommandRejectsUnknownVariant(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "", "chat", "--api-key", "sk-test", "--variant", "nope")
	assert.ErrorIs(t, err, flow.ErrUnknownVariant)
}

func TestChatCommandOnboarding(t *testing.T) {
	clearEnv(t)
	out, err := execute(t, "Alice\n2\n\n/quit\n", "chat", "--api-key", "sk-test", "--variant", flow.VariantBasic, "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, flow.NameQuestion.Prompt)
	assert.Contains(t, out, "1. "+models.IdentityStudent)
	assert.Contains(t, out, "1. "+models.AnswerYes, "the second answer moves on to the foreigner question")
}

func TestInvalidLogLevel(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "", "chat", "--api-key", "sk-test", "--log-level", "chatty")
	assert.Error(t, err)
}

func TestRunChat(t *testing.T) {
	v, err := flow.LookupVariant(flow.VariantBasic)
	require.NoError(t, err)
	sessions := flow.NewSessionManager(store.NewInMemoryStore(), v)
	conv := messaging.NewConversation(sessions, flow.NewChatDriver(stubCompleter{reply: "Try a polytechnic."}))

	in := strings.NewReader("Alice\nStudent\nno\nWhat should I study?\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), conv, in, &out))

	text := out.String()
	assert.Contains(t, text, "Alice, it's a great pleasure to meet you.")
	assert.Contains(t, text, "Try a polytechnic.")
}

func TestServeStopsOnCancel(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	a := &app{cfg: cfg}

	a.cfg.APIKey = "sk-test"
	a.cfg.Addr = "127.0.0.1:0"
	a.cfg.StateDir = t.TempDir()
	a.cfg.DatabaseURL = filepath.Join(a.cfg.StateDir, "sessions.db")
	a.cfg.Twilio.AccountSID = "AC123"
	a.cfg.Twilio.AuthToken = "tok"
	a.cfg.Twilio.FromNumber = "+6560000000"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
