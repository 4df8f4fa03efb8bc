package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipeerr "github.com/theolab/theoindex/internal/errors"
)

func TestMapErrorNil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapErrorContext(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, MapError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeTimeout, MapError(context.Canceled).Code)
}

func TestMapErrorUnknown(t *testing.T) {
	me := MapError(errors.New("boom"))

	assert.Equal(t, ErrCodeInternalError, me.Code)
	// Internal details never leak through the protocol boundary.
	assert.NotContains(t, me.Message, "boom")
}

func TestMapErrorPipelineCodes(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{pipeerr.ErrCodeCorruptIndex, ErrCodeIndexNotFound},
		{pipeerr.ErrCodeEmbedTimeout, ErrCodeTimeout},
		{pipeerr.ErrCodeEmbedderUnavailable, ErrCodeEmbeddingFailed},
		{pipeerr.ErrCodeEmbedFailed, ErrCodeEmbeddingFailed},
		{pipeerr.ErrCodeInvalidQuery, ErrCodeInvalidParams},
		{pipeerr.ErrCodeInvalidInput, ErrCodeInvalidParams},
		{pipeerr.ErrCodeStoreFailed, ErrCodeInternalError},
	}

	for _, tc := range cases {
		me := MapError(pipeerr.New(tc.code, "failed", nil))
		assert.Equal(t, tc.want, me.Code, tc.code)
	}
}

func TestMapErrorCarriesSuggestion(t *testing.T) {
	err := pipeerr.New(pipeerr.ErrCodeCorruptIndex, "vector index unreadable", nil).
		WithSuggestion("Run 'theoindex index --reindex' to rebuild.")

	me := MapError(err)

	require.Equal(t, ErrCodeIndexNotFound, me.Code)
	assert.Contains(t, me.Message, "vector index unreadable")
	assert.Contains(t, me.Message, "--reindex")
}

func TestMapErrorUnwrapsWrapped(t *testing.T) {
	inner := pipeerr.New(pipeerr.ErrCodeInvalidQuery, "empty search query", nil)
	wrapped := errorsJoin(inner)

	me := MapError(wrapped)

	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

// errorsJoin wraps an error one level deep the way call sites do with %w.
func errorsJoin(err error) error {
	return &wrappedErr{err}
}

type wrappedErr struct{ err error }

func (w *wrappedErr) Error() string { return "search: " + w.err.Error() }
func (w *wrappedErr) Unwrap() error { return w.err }

func TestMCPErrorString(t *testing.T) {
	me := &MCPError{Code: ErrCodeInvalidParams, Message: "bad input"}

	assert.Equal(t, "MCP error -32602: bad input", me.Error())
}
