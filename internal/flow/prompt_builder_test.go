package flow

import (
	"strings"
	"testing"

	"github.com/BTreeMap/SGGuide/internal/models"
)

func profileWith(values map[models.Field]string) *Profile {
	return ProfileFromSnapshot(values)
}

func TestBuildSystemPromptNoAdditions(t *testing.T) {
	v := mustVariant(t, VariantBasic)
	p := profileWith(map[models.Field]string{models.FieldName: "Alice"})

	got := BuildSystemPrompt(v, p)
	want := v.BasePrompt("", "")
	if got != want {
		t.Errorf("expected the base prompt unchanged, got %q", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Error("prompt without additions must not end with a separator")
	}
	if strings.Count(got, "'"+models.NotAvailable+"'") != 2 {
		t.Errorf("expected identity and foreigner status rendered as N.A.:\n%s", got)
	}
}

func TestBuildSystemPromptClauses(t *testing.T) {
	v := mustVariant(t, VariantComplete)
	tests := []struct {
		name    string
		profile map[models.Field]string
		suffix  string
	}{
		{
			name:    "identity only",
			profile: map[models.Field]string{models.FieldIdentity: models.IdentityStudent},
			suffix:  " The user is a Student.",
		},
		{
			name:    "foreigner",
			profile: map[models.Field]string{models.FieldIsForeigner: models.AnswerYes},
			suffix:  " The user is a foreigner.",
		},
		{
			name:    "resident",
			profile: map[models.Field]string{models.FieldIsForeigner: models.AnswerNo},
			suffix:  " The user is a Singaporean or permanent resident.",
		},
		{
			name: "all fields in fixed order",
			profile: map[models.Field]string{
				models.FieldIsForeigner: models.AnswerYes,
				models.FieldOrigin:      "Malaysia",
				models.FieldIdentity:    models.IdentityProfessional,
			},
			suffix: " The user is a Working Professional. The user is from Malaysia. The user is a foreigner.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := profileWith(tt.profile)
			got := BuildSystemPrompt(v, p)
			base := v.BasePrompt(p.Value(models.FieldIdentity), p.Value(models.FieldIsForeigner))
			if got != base+tt.suffix {
				t.Errorf("unexpected prompt suffix:\n got: %q\nwant: %q", strings.TrimPrefix(got, base), tt.suffix)
			}
		})
	}
}

func TestBuildSystemPromptIsPure(t *testing.T) {
	v := mustVariant(t, VariantComplete)
	p := profileWith(map[models.Field]string{
		models.FieldName:     "Alice",
		models.FieldIdentity: models.IdentityVisitor,
	})
	first := BuildSystemPrompt(v, p)
	second := BuildSystemPrompt(v, p)
	if first != second {
		t.Error("BuildSystemPrompt is not deterministic")
	}
}

func TestBuildSystemPromptOriginChangesOnlyItsClause(t *testing.T) {
	v := mustVariant(t, VariantComplete)
	a := BuildSystemPrompt(v, profileWith(map[models.Field]string{
		models.FieldIdentity: models.IdentityStudent, models.FieldOrigin: "India", models.FieldIsForeigner: models.AnswerYes,
	}))
	b := BuildSystemPrompt(v, profileWith(map[models.Field]string{
		models.FieldIdentity: models.IdentityStudent, models.FieldOrigin: "Japan", models.FieldIsForeigner: models.AnswerYes,
	}))
	if strings.Replace(a, "The user is from India.", "The user is from Japan.", 1) != b {
		t.Errorf("changing origin altered more than the origin clause:\n%s\n%s", a, b)
	}
}

func TestBasePromptMentionsReliabilityAndFollowUps(t *testing.T) {
	for _, name := range VariantNames() {
		v := mustVariant(t, name)
		base := v.BasePrompt(models.IdentityStudent, models.AnswerNo)
		for _, want := range []string{"I don't know", "exactly three follow-up questions", "'Student'", "'No'", ".sg"} {
			if !strings.Contains(base, want) {
				t.Errorf("%s: base prompt missing %q", name, want)
			}
		}
		if strings.Contains(base, "%!") {
			t.Errorf("%s: base prompt has a formatting error:\n%s", name, base)
		}
	}
}
