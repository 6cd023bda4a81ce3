package twiliowhatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "12345", "Hello Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}

	if mock.SentMessages[0].Body != "Hello Test" {
		t.Errorf("expected body %q, got %q", "Hello Test", mock.SentMessages[0].Body)
	}

	mock.Err = errors.New("boom")
	if err := mock.SendMessage(ctx, "12345", "again"); err == nil {
		t.Error("expected the configured error")
	}
	if len(mock.Sent()) != 1 {
		t.Error("failed sends must not be recorded")
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); !errors.Is(err, ErrMissingSender) {
		t.Errorf("expected ErrMissingSender, got %v", err)
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("+6560000000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+6560000000" {
		t.Errorf("sender not prefixed: %q", c.fromWhats)
	}
}

func TestNewClientEnvFallback(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_FROM_NUMBER", "whatsapp:+6560000000")
	c, err := NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+6560000000" {
		t.Errorf("unexpected sender %q", c.fromWhats)
	}
}

func TestSplitBody(t *testing.T) {
	if parts := SplitBody("short", 10); len(parts) != 1 || parts[0] != "short" {
		t.Errorf("unexpected split %q", parts)
	}

	body := "line one\nline two\nline three"
	parts := SplitBody(body, 12)
	for _, p := range parts {
		if len([]rune(p)) > 12 {
			t.Errorf("part too long: %q", p)
		}
	}
	if strings.Join(parts, "\n") != body {
		t.Errorf("parts do not reassemble the body: %q", parts)
	}

	long := strings.Repeat("é", 25)
	parts = SplitBody(long, 10)
	if len(parts) != 3 || strings.Join(parts, "") != long {
		t.Errorf("unexpected rune split: %q", parts)
	}
}

func sign(token, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier(t *testing.T) {
	const publicURL = "https://sgguide.example.com/twilio/webhook"
	form := url.Values{"From": {"whatsapp:+6591234567"}, "Body": {"hi"}}

	req := httptest.NewRequest("POST", "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sign("secret", publicURL, form))
	if err := req.ParseForm(); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}

	if !NewSignatureVerifier("secret", publicURL).Verify(req) {
		t.Error("valid signature rejected")
	}
	if NewSignatureVerifier("other", publicURL).Verify(req) {
		t.Error("signature with the wrong token accepted")
	}
}
