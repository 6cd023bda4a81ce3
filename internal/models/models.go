// Package models defines the core data structures for SGGuide.
//
// It includes conversation turns, completion parameters, session snapshots and
// the JSON envelope used by the HTTP API. These are shared across modules.
package models

import "errors"

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleSystem is the single instruction turn at index 0 of every log.
	RoleSystem Role = "system"
	// RoleUser is a message typed by the person using the assistant.
	RoleUser Role = "user"
	// RoleAssistant is a reply from the model, an intro message, or an error notice.
	RoleAssistant Role = "assistant"
)

// IsValidRole checks if the given role is supported.
func IsValidRole(r Role) bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Turn is a single entry in a conversation log.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionParams holds the fixed knobs sent with every completion call.
type CompletionParams struct {
	Model       string  `json:"model"`
	MaxTokens   int64   `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Default completion parameters used by the chat driver.
const (
	DefaultModel       = "meta-llama/llama-3-70b-instruct"
	DefaultMaxTokens   = 800
	DefaultTemperature = 0.3
)

// DefaultCompletionParams returns the completion parameters every variant uses.
func DefaultCompletionParams() CompletionParams {
	return CompletionParams{
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
}

// ErrInvalidRole is returned when a turn carries an unknown role.
var ErrInvalidRole = errors.New("invalid turn role")

// Validate checks that the turn has a known role.
func (t Turn) Validate() error {
	if !IsValidRole(t.Role) {
		return ErrInvalidRole
	}
	return nil
}

// APIStatus is the status field of an APIResponse.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the envelope of every JSON response of the session API.
type APIResponse struct {
	Status  APIStatus `json:"status"`
	Message string    `json:"message,omitempty"`
	Result  any       `json:"result,omitempty"`
}

// Success wraps result in an ok response.
func Success(result any) APIResponse {
	return APIResponse{Status: APIStatusOK, Result: result}
}

// SuccessWithMessage is Success with an informational message.
func SuccessWithMessage(message string, result any) APIResponse {
	return APIResponse{Status: APIStatusOK, Message: message, Result: result}
}

// Error creates an error response carrying message.
func Error(message string) APIResponse {
	return APIResponse{Status: APIStatusError, Message: message}
}
