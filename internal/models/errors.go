package models

import "errors"

// Application-wide standard errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrProjectNotFound = errors.New("project not found")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrBadRequest    = errors.New("bad request")
	ErrInvalidInput  = errors.New("invalid input data")
	ErrEmptyMessage  = errors.New("message must not be empty")
	ErrPhoneRequired = errors.New("phone number is required")
	ErrInvalidStatus = errors.New("invalid project status")
	ErrInvalidCursor = errors.New("invalid pagination cursor")

	ErrInternalServer = errors.New("internal server error")
)

// ErrorResponse - стандартное тело ответа с ошибкой.
// Details и Trace заполняются только вне production.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Trace   []string `json:"trace,omitempty"`
}
