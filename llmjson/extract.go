// Package llmjson recovers structured payloads from free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNoJSONObject = errors.New("no JSON object found")
	ErrUnbalanced   = errors.New("unbalanced JSON object")
)

// ExtractError reports why no object could be recovered. Offset is the
// position of the last candidate opening brace, or -1 when there was none.
type ExtractError struct {
	Reason error
	Offset int
}

func (e *ExtractError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("extract json: %v", e.Reason)
	}
	return fmt.Sprintf("extract json at offset %d: %v", e.Offset, e.Reason)
}

func (e *ExtractError) Unwrap() error {
	return e.Reason
}

// ExtractObject returns the first balanced, well-formed JSON object embedded
// in text. Braces inside string literals are ignored. Candidates that balance
// but fail to parse are skipped and scanning resumes after their opening brace.
// A brace left open at the end of text ends the search after the objects
// closed inside it have been tried, so truncated replies are scanned once.
func ExtractObject(text string) (string, error) {
	last := -1
	reason := ErrNoJSONObject

	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		last = start

		end, closed := matchBrace(text, start)
		if end < 0 {
			for _, sp := range closed {
				candidate := text[sp.open : sp.close+1]
				if json.Valid([]byte(candidate)) {
					return candidate, nil
				}
			}
			return "", &ExtractError{Reason: ErrUnbalanced, Offset: start}
		}

		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
		reason = ErrNoJSONObject
	}

	return "", &ExtractError{Reason: reason, Offset: last}
}

// Unmarshal extracts the first JSON object from text and decodes it into v.
func Unmarshal(text string, v any) error {
	obj, err := ExtractObject(text)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("failed to decode extracted object: %w", err)
	}

	return nil
}

type span struct {
	open, close int
}

// matchBrace returns the index of the brace closing the one at start, or -1
// when text ends first. In the latter case it also returns the nested brace
// pairs closed along the way, ordered by their opening position.
func matchBrace(text string, start int) (int, []span) {
	var (
		opens    []int
		closed   []span
		inString bool
		escaped  bool
	)

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			opens = append(opens, i)
		case '}':
			open := opens[len(opens)-1]
			opens = opens[:len(opens)-1]
			if len(opens) == 0 {
				return i, nil
			}
			closed = append(closed, span{open: open, close: i})
		}
	}

	sort.Slice(closed, func(i, j int) bool { return closed[i].open < closed[j].open })
	return -1, closed
}
