package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	CodeBotError   = "BOT_ERROR"
	CodeAPIError   = "API_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeCache      = "CACHE_ERROR"
	CodeService    = "SERVICE_ERROR"
	CodeRender     = "RENDER_ERROR"
)

// ErrCharacterNotInShowcase reports that the showcase page loaded but the
// requested character is not displayed on the player's public card.
var ErrCharacterNotInShowcase = stderrors.New("character not present in showcase")

type BotError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *BotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BotError) Unwrap() error {
	return e.Cause
}

func NewBotError(message, code string, statusCode int, context map[string]any) *BotError {
	return &BotError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *BotError) WithCause(cause error) *BotError {
	e.Cause = cause
	return e
}

type APIError struct {
	*BotError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

// WithCause keeps the *APIError type when attaching a cause.
func (e *APIError) WithCause(cause error) *APIError {
	e.Cause = cause
	return e
}

type ValidationError struct {
	*BotError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*BotError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*BotError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		BotError: &BotError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// RenderError is an automation failure at a specific stage of the showcase
// render sequence.
type RenderError struct {
	*BotError
	Stage       string
	UID         string
	CharacterID string
}

func NewRenderError(stage, uid, characterID string, cause error) *RenderError {
	return &RenderError{
		BotError: &BotError{
			Message:    fmt.Sprintf("render failed at %s", stage),
			Code:       CodeRender,
			StatusCode: 502,
			Context: map[string]any{
				"stage":        stage,
				"uid":          uid,
				"character_id": characterID,
			},
			Cause: cause,
		},
		Stage:       stage,
		UID:         uid,
		CharacterID: characterID,
	}
}

// StatusCode extracts the HTTP-ish status carried by any error in the tree.
func StatusCode(err error) int {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) && apiErr.BotError != nil {
		return apiErr.StatusCode
	}
	var renderErr *RenderError
	if stderrors.As(err, &renderErr) && renderErr.BotError != nil {
		return renderErr.StatusCode
	}
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr.StatusCode
	}
	return 0
}
