// Package models defines flow type definitions to avoid circular imports.
package models

// StateType represents the stage a session is in.
type StateType string

// Field names a profile entry collected during onboarding.
type Field string

// Session stages. CHATTING is terminal.
const (
	StateNeedName   StateType = "NEED_NAME"
	StateOnboarding StateType = "ONBOARDING"
	StateChatting   StateType = "CHATTING"
)

// Profile fields across all variants.
const (
	FieldName        Field = "name"
	FieldIdentity    Field = "identity"
	FieldOrigin      Field = "origin"
	FieldIsForeigner Field = "is_foreigner"
)

// Answers accepted by the foreigner-status question.
const (
	AnswerYes = "Yes"
	AnswerNo  = "No"
)

// Identity choices offered by the enumerated variants.
const (
	IdentityStudent      = "Student"
	IdentityProfessional = "Working Professional"
	IdentityVisitor      = "Visitor/Planning to come to Singapore"
	IdentityOthers       = "Others"
)

// NotAvailable is substituted into the prompt for profile values not yet known.
const NotAvailable = "N.A."
