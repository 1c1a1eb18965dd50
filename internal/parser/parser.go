package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/laissez-faire/mealplanner/internal/models"
)

// fencePattern matches markdown code fence markers wherever they appear.
var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// ParseError means no JSON array of recipes could be recovered from the
// model output. Raw holds the offending text.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to recover recipe array from model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errNoArray    = errors.New("no bracket-balanced JSON array found")
	errNotObjects = errors.New("array elements must be JSON objects")
)

// Parse turns raw model text into recipes. Fences are stripped, a direct
// parse is attempted, and failing that the first balanced [...] span that
// holds at least one object is parsed instead. Output that was cut off
// before its array closed is never repaired.
func Parse(raw string) ([]models.Recipe, error) {
	text := Clean(raw)

	recipes, err := decode(text)
	if err == nil {
		return recipes, nil
	}
	slog.Debug("Direct parse of model output failed, scanning for embedded array", "error", err)

	if recipes, ok := extract(text); ok {
		return recipes, nil
	}

	slog.Error("Model output could not be repaired into a JSON array", "length", len(raw))
	return nil, &ParseError{Raw: raw, Err: fmt.Errorf("%w: %v", errNoArray, err)}
}

// Clean removes every code fence marker and surrounding whitespace.
func Clean(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
}

func decode(text string) ([]models.Recipe, error) {
	if !strings.HasPrefix(text, "[") {
		return nil, errors.New("text does not start with a JSON array")
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, err
	}

	recipes := make([]models.Recipe, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &recipes[i]); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, errNotObjects)
		}
	}
	return recipes, nil
}

func extract(text string) ([]models.Recipe, bool) {
	from := 0
	for {
		i := strings.IndexByte(text[from:], '[')
		if i < 0 {
			return nil, false
		}
		start := from + i

		end, res := matchBalanced(text, start)
		switch res {
		case truncated:
			// The output was cut off. Any array still inside it, such as a
			// recipe's ingredients, is not the batch.
			return nil, false
		case matched:
			candidate := text[start : end+1]
			if strings.IndexByte(candidate, '{') >= 0 {
				if recipes, err := decode(candidate); err == nil {
					return recipes, true
				}
			}
		}

		// Brackets inside a span already scanned belong to that candidate.
		from = end + 1
	}
}

type matchResult int

const (
	matched matchResult = iota
	mismatched
	truncated
)

// matchBalanced scans the group opening at open. On a match it returns the
// index of the closing bracket; on a mismatch, the index of the offending
// closer. Brackets inside JSON string literals are ignored.
func matchBalanced(text string, open int) (int, matchResult) {
	m := matcher{text: text, pos: open}
	res := m.group()
	switch res {
	case matched:
		return m.pos - 1, matched
	case mismatched:
		return m.pos, mismatched
	default:
		return len(text) - 1, truncated
	}
}

type matcher struct {
	text string
	pos  int
}

// group consumes one [..] or {..} group starting at pos, recursing into
// nested groups and skipping strings.
func (m *matcher) group() matchResult {
	var closer byte
	switch m.text[m.pos] {
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return mismatched
	}
	m.pos++

	for m.pos < len(m.text) {
		switch c := m.text[m.pos]; c {
		case closer:
			m.pos++
			return matched
		case ']', '}':
			return mismatched
		case '[', '{':
			if res := m.group(); res != matched {
				return res
			}
		case '"':
			if !m.str() {
				return truncated
			}
		default:
			m.pos++
		}
	}

	return truncated
}

// str consumes a string literal; false means the text ended inside it.
func (m *matcher) str() bool {
	m.pos++
	for m.pos < len(m.text) {
		switch m.text[m.pos] {
		case '\\':
			m.pos += 2
		case '"':
			m.pos++
			return true
		default:
			m.pos++
		}
	}
	return false
}
