package dto

// BaseError — универсальный формат ошибки API.
// Code — машинный код (snake_case), Message — человеко-читаемое описание.
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError — ошибка по конкретному полю формы.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func NewValidationError(msg string, fields []FieldError) BaseError {
	return BaseError{Code: "validation_error", Message: msg, Fields: fields}
}

func NewConflictError(msg string) BaseError {
	return BaseError{Code: "conflict", Message: msg}
}

func NewUnauthorizedError(msg string) BaseError {
	return BaseError{Code: "unauthorized", Message: msg}
}

func NewForbiddenError(msg string) BaseError {
	return BaseError{Code: "forbidden", Message: msg}
}

func NewNotFoundError(msg string) BaseError {
	return BaseError{Code: "not_found", Message: msg}
}

func NewUnavailableError(msg string) BaseError {
	return BaseError{Code: "unavailable", Message: msg}
}

func NewRateLimitedError(msg string) BaseError {
	return BaseError{Code: "rate_limited", Message: msg}
}

func NewInternalError(details string) BaseError {
	return BaseError{Code: "internal_error", Message: "internal server error", Details: details}
}
