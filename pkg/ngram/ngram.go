// Package ngram provides the n-gram domain vocabulary: tokenization
// contracts, the insertion-ordered string dictionary, and in-memory n-gram
// generation over token lists.
package ngram

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Column names shared by every table the engine produces or consumes.
const (
	ColRecordID = "record_id"
	ColText     = "text"
	ColNgramID  = "ngram_id"
	ColNgram    = "ngram"
	ColCount    = "count"
)

// tokenJoiner separates tokens inside an n-gram string.
const tokenJoiner = " "

// ErrInvalidNRange is returned for non-positive or inverted n ranges.
var ErrInvalidNRange = errors.New("ngram: invalid n range")

// Tokenizer turns a text record into an ordered token list. Implementations
// must be deterministic and pure; the engine treats them as black boxes.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TokenizerFunc adapts a function to the Tokenizer interface.
type TokenizerFunc func(text string) []string

// Tokenize implements Tokenizer.
func (f TokenizerFunc) Tokenize(text string) []string {
	return f(text)
}

// SimpleTokenizer lowercases and splits on any run of non-letter,
// non-digit characters. The simplest deterministic tokenizer; linguistic
// correctness is out of scope.
func SimpleTokenizer() Tokenizer {
	return TokenizerFunc(func(text string) []string {
		return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	})
}

// ValidateRange checks an n-gram length range.
func ValidateRange(minN, maxN int) error {
	if minN < 1 || maxN < minN {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidNRange, minN, maxN)
	}

	return nil
}

// Generate returns every n-gram string for contiguous token subsequences of
// length n in [minN, maxN], in position-then-length order: all grams
// starting at token 0 (shortest first), then all grams starting at token 1,
// and so on. The order is fixed so identifier assignment is deterministic.
func Generate(tokens []string, minN, maxN int) []string {
	if len(tokens) == 0 || minN < 1 || maxN < minN {
		return nil
	}

	out := make([]string, 0, estimateCount(len(tokens), minN, maxN))

	for start := range tokens {
		for n := minN; n <= maxN; n++ {
			if start+n > len(tokens) {
				break
			}

			out = append(out, strings.Join(tokens[start:start+n], tokenJoiner))
		}
	}

	return out
}

func estimateCount(tokens, minN, maxN int) int {
	total := 0

	for n := minN; n <= maxN; n++ {
		if tokens >= n {
			total += tokens - n + 1
		}
	}

	return total
}
