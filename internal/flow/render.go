package flow

import (
	"strconv"
	"strings"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// Widget is the input control a question is answered with.
type Widget string

const (
	WidgetText  Widget = "text"
	WidgetRadio Widget = "radio"
)

// Stage names used in views.
const (
	StageNeedName   = "need_name"
	StageOnboarding = "onboarding"
	StageChatting   = "chatting"
)

// QuestionView describes the question currently on screen.
type QuestionView struct {
	Field      models.Field `json:"field"`
	Prompt     string       `json:"prompt"`
	Choices    []string     `json:"choices,omitempty"`
	Widget     Widget       `json:"widget"`
	Horizontal bool         `json:"horizontal,omitempty"`
}

// View is everything a surface needs to draw a session.
type View struct {
	SessionID   string        `json:"session_id"`
	Variant     string        `json:"variant"`
	Title       string        `json:"title"`
	Tagline     string        `json:"tagline"`
	Stage       string        `json:"stage"`
	Step        int           `json:"step"`
	Steps       int           `json:"steps"`
	Name        string        `json:"name,omitempty"`
	Question    *QuestionView `json:"question,omitempty"`
	Transcript  []models.Turn `json:"transcript,omitempty"`
	Pending     string        `json:"pending,omitempty"`
	Busy        bool          `json:"busy"`
	ChatEnabled bool          `json:"chat_enabled"`
}

// Render builds the view of s. It does not modify the session.
func Render(s *Session) View {
	step, steps := s.Variant.OnboardingStep(s.Profile)
	view := View{
		SessionID: s.ID,
		Variant:   s.Variant.Name,
		Title:     s.Variant.Title,
		Tagline:   s.Variant.Tagline,
		Step:      step,
		Steps:     steps,
		Name:      s.Profile.Value(models.FieldName),
	}

	state, _ := s.State()
	switch state {
	case models.StateNeedName:
		view.Stage = StageNeedName
	case models.StateOnboarding:
		view.Stage = StageOnboarding
	default:
		view.Stage = StageChatting
		view.Transcript = s.Log.Transcript()
		view.Pending = s.PendingInput
		view.Busy = s.PendingInput != ""
		view.ChatEnabled = !view.Busy
		return view
	}

	if q, ok := s.NextQuestion(); ok {
		view.Question = newQuestionView(q)
	}
	return view
}

func newQuestionView(q Question) *QuestionView {
	qv := &QuestionView{
		Field:      q.Field,
		Prompt:     q.Prompt,
		Widget:     WidgetText,
		Horizontal: q.Horizontal,
	}
	if q.HasChoices() {
		qv.Choices = append([]string(nil), q.Choices...)
		qv.Widget = WidgetRadio
	}
	return qv
}

// PlainText renders the actionable part of v for text-only channels: the
// latest assistant turn when chatting, otherwise the question with numbered
// choices.
func PlainText(v View) string {
	if v.Stage == StageChatting {
		for i := len(v.Transcript) - 1; i >= 0; i-- {
			if v.Transcript[i].Role == models.RoleAssistant {
				return v.Transcript[i].Content
			}
		}
		return ""
	}
	if v.Question == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(v.Question.Prompt)
	for i, c := range v.Question.Choices {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(c)
	}
	return b.String()
}

// ChoiceByNumber maps a numbered reply such as "2" to the matching choice of
// q. Anything else is returned unchanged.
func ChoiceByNumber(q Question, reply string) string {
	reply = strings.TrimSpace(reply)
	for i, c := range q.Choices {
		if reply == strconv.Itoa(i+1) {
			return c
		}
	}
	return reply
}

