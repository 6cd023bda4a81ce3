package flow

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// FollowUpPolicy decides where the follow-up questions after each answer come from.
type FollowUpPolicy int

const (
	// FollowUpsFromModel relies on the system prompt; replies are used verbatim.
	FollowUpsFromModel FollowUpPolicy = iota
	// FollowUpsStatic appends StaticFollowUps to every successful reply.
	FollowUpsStatic
)

func (p FollowUpPolicy) String() string {
	switch p {
	case FollowUpsFromModel:
		return "model"
	case FollowUpsStatic:
		return "static"
	default:
		return fmt.Sprintf("FollowUpPolicy(%d)", int(p))
	}
}

// StaticFollowUps is appended to replies under FollowUpsStatic.
const StaticFollowUps = "\n\n---\n" +
	"🔍 *You can also ask:*\n" +
	"- Would it help to discuss how this fits with what we've talked about so far?\n" +
	"- Are you interested in the bigger picture or trends related to this?\n" +
	"- What are you currently doing or planning next about this?"

// Variant is a named configuration of the onboarding questions, the base
// system prompt and the follow-up policy.
type Variant struct {
	Name      string
	Title     string
	Tagline   string
	Questions []Question
	FollowUps FollowUpPolicy

	// basePrompt is a format string taking the identity and foreigner status.
	basePrompt string
}

// BasePrompt renders the variant's fixed instruction text for the given
// identity and foreigner status. Blank values render as models.NotAvailable.
func (v *Variant) BasePrompt(identity, foreigner string) string {
	if strings.TrimSpace(identity) == "" {
		identity = models.NotAvailable
	}
	if strings.TrimSpace(foreigner) == "" {
		foreigner = models.NotAvailable
	}
	return fmt.Sprintf(v.basePrompt, identity, foreigner)
}

// Sequence returns every question of the variant, starting with the name question.
func (v *Variant) Sequence() []Question {
	seq := make([]Question, 0, len(v.Questions)+1)
	seq = append(seq, NameQuestion)
	return append(seq, v.Questions...)
}

var variants = make(map[string]*Variant)

// RegisterVariant makes v available to LookupVariant under v.Name.
func RegisterVariant(v *Variant) {
	variants[v.Name] = v
}

// LookupVariant retrieves a registered variant by name.
func LookupVariant(name string) (*Variant, error) {
	v, ok := variants[name]
	if !ok {
		slog.Debug("LookupVariant: no such variant", "name", name)
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v, nil
}

// VariantNames lists the registered variants in lexical order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Variant names.
const (
	VariantComplete        = "sg-complete"
	VariantBasic           = "sg-basic"
	VariantFreeform        = "sg-freeform"
	VariantStaticFollowUps = "sg-static-followups"

	DefaultVariant = VariantComplete
)

const (
	appTitle   = "🇸🇬 SG Career & Study Bot"
	appTagline = "Ask anything about education, work, or life in Singapore. The AI will help guide you step-by-step."
)

var (
	identityQuestion = Question{
		Field:      models.FieldIdentity,
		Prompt:     "Please select your current status:",
		Choices:    []string{models.IdentityStudent, models.IdentityProfessional, models.IdentityVisitor, models.IdentityOthers},
		Horizontal: true,
	}
	freeformIdentityQuestion = Question{
		Field:  models.FieldIdentity,
		Prompt: "How would you describe your current status (for example student, engineer, retiree)?",
	}
	originQuestion = Question{
		Field:  models.FieldOrigin,
		Prompt: "Which country are you from?",
	}
	foreignerQuestion = Question{
		Field:      models.FieldIsForeigner,
		Prompt:     "Are you a foreigner to Singapore?",
		Choices:    []string{models.AnswerYes, models.AnswerNo},
		Horizontal: true,
	}
)

const followUpInstructions = "- Ask relevant follow-up questions thoughtfully to help fulfill the user's knowledge gaps. " +
	"Specifically, after providing an answer, ask **exactly three follow-up questions**:\n" +
	"  1. One question on a topic directly related to the user's current query to deepen understanding.\n" +
	"  2. One question exploring a broader context or bigger picture related to the current topic.\n" +
	"  3. One question tailored to the user's profile information, based on their identity ('%s') and " +
	"foreigner status ('%s'), to cover relevant details they should be aware of.\n\n"

const sgSources = "When referencing websites or sources, prioritize and mention Singapore-based resources, " +
	"especially government related websites like MOM and ICA, especially websites ending with '.sg'. " +
	"If you need to recommend a link, prefer .sg domains first."

const sgPersona = "You are a friendly and knowledgeable AI assistant who gives helpful, concise, " +
	"and trustworthy information about working, studying, or living in Singapore.\n"

const sgAuthority = "- When faced with conflicting information, prioritize the most authoritative sources and " +
	"clearly communicate the best-supported facts. Always direct users to verify details using official " +
	"government websites for confirmation.\n"

const sgReasoning = "- Apply a clear, logical chain-of-thought by breaking down complex questions step-by-step. " +
	"This ensures precise, transparent, and well-reasoned answers.\n"

const sgHonesty = "- If you are not sure about an answer, respond honestly with \"I don't know\" or suggest " +
	"that the user consult official government sources for confirmation.\n\n"

const sgOrigin = "- When the user's country of origin is known, point out arrangements that depend on nationality, " +
	"such as visa exemptions or bilateral agreements, and say when they do not apply.\n"

func init() {
	RegisterVariant(&Variant{
		Name:       VariantComplete,
		Title:      appTitle,
		Tagline:    appTagline,
		Questions:  []Question{identityQuestion, originQuestion, foreignerQuestion},
		FollowUps:  FollowUpsFromModel,
		basePrompt: sgPersona + sgAuthority + sgReasoning + sgOrigin + sgHonesty + followUpInstructions + sgSources,
	})
	RegisterVariant(&Variant{
		Name:       VariantBasic,
		Title:      appTitle,
		Tagline:    appTagline,
		Questions:  []Question{identityQuestion, foreignerQuestion},
		FollowUps:  FollowUpsFromModel,
		basePrompt: sgPersona + sgAuthority + sgReasoning + sgHonesty + followUpInstructions + sgSources,
	})
	RegisterVariant(&Variant{
		Name:       VariantFreeform,
		Title:      appTitle,
		Tagline:    appTagline,
		Questions:  []Question{freeformIdentityQuestion, foreignerQuestion},
		FollowUps:  FollowUpsFromModel,
		basePrompt: sgPersona + sgAuthority + sgHonesty + followUpInstructions + sgSources,
	})
	RegisterVariant(&Variant{
		Name:       VariantStaticFollowUps,
		Title:      appTitle,
		Tagline:    appTagline,
		Questions:  []Question{identityQuestion, foreignerQuestion},
		FollowUps:  FollowUpsStatic,
		basePrompt: sgPersona + sgAuthority + sgReasoning + sgHonesty + followUpInstructions + sgSources,
	})
}
