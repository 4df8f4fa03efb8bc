package chunk

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

// Tokenizer counts model tokens. When the BPE encoding cannot be loaded
// (offline first run), it degrades to a character-count approximation so the
// pipeline keeps working with slightly coarser chunk boundaries.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the cl100k_base encoding, falling back to approximate
// counting on failure.
func NewTokenizer(logger *slog.Logger) *Tokenizer {
	if logger == nil {
		logger = slog.Default()
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		logger.Warn("tokenizer_unavailable",
			slog.String("encoding", encodingName),
			slog.String("error", err.Error()))
		return &Tokenizer{}
	}
	return &Tokenizer{enc: enc}
}

// Count returns the token count of text.
func (t *Tokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	if t.enc != nil {
		return len(t.enc.Encode(text, nil, nil))
	}
	n := utf8.RuneCountInString(text) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}

// Exact reports whether real token counting is available.
func (t *Tokenizer) Exact() bool { return t.enc != nil }
