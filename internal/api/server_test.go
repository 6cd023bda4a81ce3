package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/BTreeMap/SGGuide/internal/flow"
	"github.com/BTreeMap/SGGuide/internal/models"
	"github.com/BTreeMap/SGGuide/internal/store"
)

// stubCompleter answers every completion with reply, or fails with err.
type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (c *stubCompleter) Complete(ctx context.Context, turns []models.Turn, params models.CompletionParams) (string, error) {
	c.calls++
	return c.reply, c.err
}

type testClient struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T, completer *stubCompleter, opts ...Option) (*testClient, *flow.SessionManager) {
	t.Helper()
	v, err := flow.LookupVariant(flow.VariantBasic)
	if err != nil {
		t.Fatalf("LookupVariant: %v", err)
	}
	sessions := flow.NewSessionManager(store.NewInMemoryStore(), v)
	srv, err := NewServer(sessions, flow.NewChatDriver(completer), opts...)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testClient{t: t, handler: srv.Handler()}, sessions
}

func (c *testClient) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			if ck.MaxAge < 0 {
				c.cookie = nil
			} else {
				c.cookie = ck
			}
		}
	}
	return rec
}

func (c *testClient) json(method, path, body string) *httptest.ResponseRecorder {
	return c.do(method, path, "application/json", body)
}

func (c *testClient) form(path string, values url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, path, "application/x-www-form-urlencoded", values.Encode())
}

// decodeView extracts the view from a success envelope.
func decodeView(t *testing.T, rec *httptest.ResponseRecorder) flow.View {
	t.Helper()
	var resp struct {
		Status models.APIStatus `json:"status"`
		Result flow.View        `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	if resp.Status != models.APIStatusOK {
		t.Fatalf("expected ok status, got %s: %s", resp.Status, rec.Body.String())
	}
	return resp.Result
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != models.APIStatusError {
		t.Fatalf("expected error status, got %s", resp.Status)
	}
	return resp.Message
}

func TestHealthz(t *testing.T) {
	c, _ := newTestServer(t, &stubCompleter{})
	rec := c.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestJSONSessionFlow(t *testing.T) {
	completer := &stubCompleter{reply: "Check the ICA website."}
	c, _ := newTestServer(t, completer)

	rec := c.json(http.MethodGet, "/api/session", "")
	if rec.Code != http.StatusOK || c.cookie == nil {
		t.Fatalf("expected a new session cookie, got %d %v", rec.Code, rec.Result().Cookies())
	}
	if !c.cookie.HttpOnly {
		t.Error("session cookie must be HTTP-only")
	}
	if v := decodeView(t, rec); v.Stage != flow.StageNeedName {
		t.Fatalf("expected need_name, got %s", v.Stage)
	}

	rec = c.json(http.MethodPost, "/api/session/name", `{"name":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a blank name, got %d", rec.Code)
	}

	rec = c.json(http.MethodPost, "/api/session/name", `{"name":"Alice"}`)
	v := decodeView(t, rec)
	if v.Stage != flow.StageOnboarding || v.Question.Field != models.FieldIdentity {
		t.Fatalf("unexpected view after name: %+v", v)
	}

	rec = c.json(http.MethodPost, "/api/session/messages", `{"message":"too early"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 while onboarding, got %d", rec.Code)
	}

	rec = c.json(http.MethodPost, "/api/session/answers", `{"field":"is_foreigner","answer":"Yes"}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(decodeError(t, rec), "out of order") {
		t.Errorf("expected out-of-order rejection, got %d %s", rec.Code, rec.Body.String())
	}

	decodeView(t, c.json(http.MethodPost, "/api/session/answers", `{"field":"identity","answer":"Working Professional"}`))
	v = decodeView(t, c.json(http.MethodPost, "/api/session/answers", `{"field":"is_foreigner","answer":"No"}`))
	if v.Stage != flow.StageChatting || !v.ChatEnabled {
		t.Fatalf("expected chatting, got %+v", v)
	}
	last := v.Transcript[len(v.Transcript)-1]
	if !strings.HasPrefix(last.Content, "Alice, it's a great pleasure to meet you.") {
		t.Errorf("expected the intro last, got %q", last.Content)
	}

	rec = c.json(http.MethodPost, "/api/session/messages", `{"message":"How do I get an Employment Pass?"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d %s", rec.Code, rec.Body.String())
	}
	if v := decodeView(t, rec); !v.Busy || v.ChatEnabled || v.Pending == "" {
		t.Errorf("expected busy view, got %+v", v)
	}
	rec = c.json(http.MethodPost, "/api/session/messages", `{"message":"another"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 while a message is pending, got %d", rec.Code)
	}

	rec = c.json(http.MethodPost, "/api/session/messages/pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var resolved struct {
		Result replyResult `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resolved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resolved.Result.Reply != "Check the ICA website." || resolved.Result.View.Busy {
		t.Errorf("unexpected resolve result: %+v", resolved.Result)
	}
	if completer.calls != 1 {
		t.Errorf("expected one completion call, got %d", completer.calls)
	}

	rec = c.json(http.MethodDelete, "/api/session", "")
	if rec.Code != http.StatusOK || c.cookie != nil {
		t.Errorf("expected session ended and cookie cleared, got %d", rec.Code)
	}
}

func TestCompletionErrorIsShownNotFailed(t *testing.T) {
	c, sessions := newTestServer(t, &stubCompleter{err: errors.New("503 Service Unavailable")})
	c.json(http.MethodPost, "/api/session/name", `{"name":"Bob"}`)
	c.json(http.MethodPost, "/api/session/answers", `{"field":"identity","answer":"Others"}`)
	c.json(http.MethodPost, "/api/session/answers", `{"field":"is_foreigner","answer":"Yes"}`)
	c.json(http.MethodPost, "/api/session/messages", `{"message":"hi"}`)

	rec := c.json(http.MethodPost, "/api/session/messages/pending", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("a failed completion must not fail the request: %d", rec.Code)
	}
	sess, err := sessions.Load(context.Background(), c.cookie.Value)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	last, _ := sess.Log.Last()
	if last.Content != "⚠️ Error: 503 Service Unavailable" {
		t.Errorf("unexpected last turn %q", last.Content)
	}
}

func TestInvalidJSON(t *testing.T) {
	c, _ := newTestServer(t, &stubCompleter{})
	rec := c.json(http.MethodPost, "/api/session/name", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestExpiredCookieStartsNewSession(t *testing.T) {
	c, _ := newTestServer(t, &stubCompleter{})
	c.cookie = &http.Cookie{Name: SessionCookie, Value: "expired-session"}
	rec := c.json(http.MethodGet, "/api/session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if c.cookie == nil || c.cookie.Value == "expired-session" {
		t.Error("expected a replacement session cookie")
	}
}

func TestFormFlow(t *testing.T) {
	c, _ := newTestServer(t, &stubCompleter{reply: "Polytechnics offer diplomas."})

	rec := c.do(http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Hi! What&#39;s your name?") {
		t.Fatalf("expected the name question, got %d\n%s", rec.Code, rec.Body.String())
	}

	rec = c.form("/name", url.Values{"answer": {"Alice"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	page := c.do(http.MethodGet, "/", "", "").Body.String()
	if !strings.Contains(page, `type="radio"`) || !strings.Contains(page, "Working Professional") {
		t.Errorf("expected identity radio buttons:\n%s", page)
	}

	rec = c.form("/onboarding", url.Values{"field": {"identity"}, "answer": {"Pilot"}})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "not one of the offered choices") {
		t.Errorf("expected the page with an error, got %d", rec.Code)
	}

	c.form("/onboarding", url.Values{"field": {"identity"}, "answer": {"Student"}})
	c.form("/onboarding", url.Values{"field": {"is_foreigner"}, "answer": {"Yes"}})
	rec = c.form("/chat", url.Values{"message": {"Which schools?"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after chat, got %d %s", rec.Code, rec.Body.String())
	}

	page = c.do(http.MethodGet, "/", "", "").Body.String()
	for _, want := range []string{"Universities and Polytechnic options", "Which schools?", "Polytechnics offer diplomas."} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "trustworthy information") {
		t.Error("the system prompt must not be rendered")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{flow.ErrBusy, http.StatusConflict},
		{flow.ErrSessionNotFound, http.StatusNotFound},
		{flow.ErrOutOfOrder, http.StatusBadRequest},
		{flow.ErrEmptyMessage, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWebhookMounted(t *testing.T) {
	called := false
	hook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	c, _ := newTestServer(t, &stubCompleter{}, WithTwilioWebhook(hook))
	c.do(http.MethodPost, "/twilio/webhook", "application/x-www-form-urlencoded", "From=x&Body=y")
	if !called {
		t.Error("webhook handler not mounted")
	}
}
