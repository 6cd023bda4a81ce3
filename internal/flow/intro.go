package flow

import (
	"strings"

	"github.com/BTreeMap/SGGuide/internal/models"
)

var topicsByIdentity = map[string][]string{
	models.IdentityStudent: {
		"Universities and Polytechnic options",
		"Scholarships and Financial Aid",
		"Student Visa Requirements",
		"Part-time work while studying",
	},
	models.IdentityProfessional: {
		"Work Permit and Employment Pass",
		"Job Market and Industries",
		"Career Development and Training",
		"Singaporean Work Culture",
	},
	models.IdentityVisitor: {
		"Visa and Entry Requirements",
		"Living Costs and Housing",
		"Social and Cultural Adaptation",
		"Local Laws and Regulations",
	},
	models.IdentityOthers: {
		"General Education and Career Advice",
		"Living and Working in Singapore",
		"Government Services and Support",
	},
}

// SuggestedTopics returns the topics offered to an identity. Free-text
// identities match the known ones case-insensitively and fall back to Others.
func SuggestedTopics(identity string) []string {
	identity = strings.TrimSpace(identity)
	for known, topics := range topicsByIdentity {
		if strings.EqualFold(known, identity) {
			return topics
		}
	}
	return topicsByIdentity[models.IdentityOthers]
}

// IntroMessage is shown once, when onboarding completes.
func IntroMessage(name, identity string) string {
	var b strings.Builder
	b.WriteString(name)
	b.WriteString(", it's a great pleasure to meet you.\n\n")
	b.WriteString("You can ask me any questions you have—these are just suggested topics you might be interested in:")
	for _, t := range SuggestedTopics(identity) {
		b.WriteString("\n- ")
		b.WriteString(t)
	}
	return b.String()
}

// Greeting opens a conversation that has no onboarding answers.
func Greeting(name string) string {
	return "Hello, " + name + "! I am here to assist you with education, career, or life in Singapore. Feel free to ask me anything!"
}
