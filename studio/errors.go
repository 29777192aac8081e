package studio

import "errors"

// ErrInvalidInput is returned when a request fails validation before any
// model or store work happens.
var ErrInvalidInput = errors.New("studio: invalid input")

// ErrNotFound is returned when an MCP does not exist or is not owned by
// the caller. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("studio: mcp not found")

// ErrNotGenerated is returned when an operation needs a stored definition
// and none has been generated yet.
var ErrNotGenerated = errors.New("studio: no definition generated yet")

// ErrSchemaViolation is returned when model output cannot be parsed into a
// valid definition. Nothing is persisted in that case.
var ErrSchemaViolation = errors.New("studio: model output violates the definition schema")

// ErrUpstreamUnavailable is returned when the embedding service, the vector
// index, or the language model cannot be reached.
var ErrUpstreamUnavailable = errors.New("studio: upstream service unavailable")
