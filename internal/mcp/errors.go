// Package mcp implements the Model Context Protocol server for theoindex.
package mcp

import (
	"context"
	"errors"
	"fmt"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

// Custom MCP error codes for theoindex.
const (
	// ErrCodeIndexNotFound indicates no index exists yet.
	ErrCodeIndexNotFound = -32001

	// ErrCodeEmbeddingFailed indicates embedding generation failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeLemmaNotFound indicates the requested lemma is not indexed.
	ErrCodeLemmaNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var pe *pipeerr.PipelineError
	if errors.As(err, &pe) {
		return mapPipelineError(pe)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapPipelineError converts a PipelineError to an MCPError.
// The suggestion, when present, is folded into the message so AI clients
// surface the recovery hint instead of a bare failure.
func mapPipelineError(pe *pipeerr.PipelineError) *MCPError {
	message := pe.Message
	if pe.Suggestion != "" {
		message = fmt.Sprintf("%s %s", pe.Message, pe.Suggestion)
	}

	switch pe.Code {
	case pipeerr.ErrCodeCorruptIndex:
		return &MCPError{
			Code:    ErrCodeIndexNotFound,
			Message: message,
		}
	case pipeerr.ErrCodeEmbedTimeout:
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: message,
		}
	case pipeerr.ErrCodeEmbedderUnavailable, pipeerr.ErrCodeEmbedFailed:
		return &MCPError{
			Code:    ErrCodeEmbeddingFailed,
			Message: message,
		}
	}

	switch pe.Category {
	case pipeerr.CategoryValidation:
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: message,
		}
	case pipeerr.CategoryEmbed:
		return &MCPError{
			Code:    ErrCodeEmbeddingFailed,
			Message: message,
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	}
}
