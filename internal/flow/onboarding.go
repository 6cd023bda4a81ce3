package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// Question is one step of the onboarding interview. A question without
// choices accepts free text.
type Question struct {
	Field      models.Field
	Prompt     string
	Choices    []string
	Horizontal bool
}

// NameQuestion is asked first in every variant.
var NameQuestion = Question{
	Field:  models.FieldName,
	Prompt: "Hi! What's your name?",
}

// HasChoices reports whether the answer must be one of Choices.
func (q Question) HasChoices() bool {
	return len(q.Choices) > 0
}

// Normalize validates an answer and returns the value to store. Choice
// answers match case-insensitively and are returned in canonical spelling.
func (q Question) Normalize(answer string) (string, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyAnswer, q.Field)
	}
	if !q.HasChoices() {
		return answer, nil
	}
	for _, c := range q.Choices {
		if strings.EqualFold(c, answer) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not one of %s", ErrInvalidChoice, answer, strings.Join(q.Choices, ", "))
}

// NextUnansweredField scans the variant's questions in order and returns the
// first field the profile has not answered.
func (v *Variant) NextUnansweredField(p *Profile) (models.Field, bool) {
	q, ok := v.NextQuestion(p)
	if !ok {
		return "", false
	}
	return q.Field, true
}

// NextQuestion is NextUnansweredField returning the whole question.
func (v *Variant) NextQuestion(p *Profile) (Question, bool) {
	for _, q := range v.Sequence() {
		if !p.IsSet(q.Field) {
			return q, true
		}
	}
	return Question{}, false
}

// question finds the question asking for f.
func (v *Variant) question(f models.Field) (Question, bool) {
	for _, q := range v.Sequence() {
		if q.Field == f {
			return q, true
		}
	}
	return Question{}, false
}

// OnboardingStep returns the zero-based position of the next question among
// the variant's questions, excluding the name, and the number of such questions.
func (v *Variant) OnboardingStep(p *Profile) (int, int) {
	answered := 0
	for _, q := range v.Questions {
		if p.IsSet(q.Field) {
			answered++
		}
	}
	return answered, len(v.Questions)
}
