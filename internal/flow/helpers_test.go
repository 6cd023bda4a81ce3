package flow

import (
	"context"
	"sync"
	"testing"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// fakeCompleter records calls and answers with a fixed reply or error.
type fakeCompleter struct {
	mu         sync.Mutex
	reply      string
	err        error
	calls      int
	lastTurns  []models.Turn
	lastParams models.CompletionParams
	block      chan struct{} // when set, Complete waits for it to close
	started    chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, turns []models.Turn, params models.CompletionParams) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastTurns = append([]models.Turn(nil), turns...)
	f.lastParams = params
	block, started := f.block, f.started
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if block != nil {
		<-block
	}
	return f.reply, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func mustVariant(t *testing.T, name string) *Variant {
	t.Helper()
	v, err := LookupVariant(name)
	if err != nil {
		t.Fatalf("LookupVariant(%q): %v", name, err)
	}
	return v
}

// onboardedSession returns a sg-basic session that has finished onboarding.
func onboardedSession(t *testing.T) *Session {
	t.Helper()
	s := NewSession("test", mustVariant(t, VariantBasic))
	for _, step := range []struct {
		field  models.Field
		answer string
	}{
		{models.FieldName, "Alice"},
		{models.FieldIdentity, models.IdentityStudent},
		{models.FieldIsForeigner, models.AnswerYes},
	} {
		if err := s.SubmitAnswer(step.field, step.answer); err != nil {
			t.Fatalf("SubmitAnswer(%s): %v", step.field, err)
		}
	}
	return s
}
