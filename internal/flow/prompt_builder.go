package flow

import (
	"strings"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// BuildSystemPrompt derives the system instruction for v from the profile:
// the variant's base text followed by one sentence per answered field, in
// the order identity, origin, foreigner status.
func BuildSystemPrompt(v *Variant, p *Profile) string {
	identity := p.Value(models.FieldIdentity)
	foreigner := p.Value(models.FieldIsForeigner)
	base := v.BasePrompt(identity, foreigner)

	var additions []string
	if identity != "" {
		additions = append(additions, "The user is a "+identity+".")
	}
	if origin := p.Value(models.FieldOrigin); origin != "" {
		additions = append(additions, "The user is from "+origin+".")
	}
	if p.IsSet(models.FieldIsForeigner) {
		if foreigner == models.AnswerYes {
			additions = append(additions, "The user is a foreigner.")
		} else {
			additions = append(additions, "The user is a Singaporean or permanent resident.")
		}
	}

	if len(additions) == 0 {
		return base
	}
	return base + " " + strings.Join(additions, " ")
}
