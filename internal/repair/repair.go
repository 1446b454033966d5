// Package repair recovers a JSON value from untrusted model output.
//
// A direct parse is attempted first. When it fails, an ordered list of
// independent text rules is applied (code fence stripping, brace slicing,
// trailing comma removal, quote normalization) and the result is parsed again.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSnippetRunes caps the amount of offending text carried by an ExtractionError.
const MaxSnippetRunes = 200

// maxDecodeDepth bounds how many times a JSON string is unwrapped.
const maxDecodeDepth = 2

var (
	ErrEmptyInput   = errors.New("empty response")
	ErrNoJSONObject = errors.New("no JSON object found")
	ErrNotAnObject  = errors.New("JSON value is not an object")
)

// ExtractionError reports that no JSON value could be recovered from the text.
type ExtractionError struct {
	Step    string // rule name, "parse" or "input"
	Err     error
	Snippet string // bounded prefix of the offending text
}

func (e *ExtractionError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("could not repair JSON (%s): %v", e.Step, e.Err)
	}
	return fmt.Sprintf("could not repair JSON (%s): %v; text: %s", e.Step, e.Err, e.Snippet)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Snippet returns at most MaxSnippetRunes runes of s, marking truncation with "...".
func Snippet(s string) string {
	if utf8.RuneCountInString(s) <= MaxSnippetRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxSnippetRunes]) + "..."
}

// Result describes a successful recovery.
type Result struct {
	Value   any
	Applied []string // names of rules that changed the text, in order
	Unwraps int      // number of double-encoding layers removed
}

// Parse recovers a JSON value from raw.
func Parse(raw string) (any, error) {
	res, err := Recover(raw)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// ParseObject is Parse restricted to JSON objects.
func ParseObject(raw string) (map[string]any, error) {
	v, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ExtractionError{Step: "parse", Err: ErrNotAnObject, Snippet: Snippet(strings.TrimSpace(raw))}
	}
	return obj, nil
}

// Recover is Parse with details about the repairs performed.
func Recover(raw string) (*Result, error) {
	res := &Result{}
	v, err := recoverValue(raw, 0, res)
	if err != nil {
		return nil, err
	}
	res.Value = v
	return res, nil
}

func recoverValue(raw string, depth int, res *Result) (any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ExtractionError{Step: "input", Err: ErrEmptyInput}
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		// A JSON string whose content is itself JSON: unwrap it.
		if inner, ok := v.(string); ok && depth < maxDecodeDepth {
			res.Unwraps++
			return recoverValue(inner, depth+1, res)
		}
		return v, nil
	}

	// A fenced JSON string: unwrap it before the object rules run
	if depth < maxDecodeDepth {
		if unfenced, err := StripCodeFence(text); err == nil && unfenced != text {
			var inner string
			if json.Unmarshal([]byte(strings.TrimSpace(unfenced)), &inner) == nil {
				res.Applied = append(res.Applied, DefaultRules[0].Name)
				res.Unwraps++
				return recoverValue(inner, depth+1, res)
			}
		}
	}

	repaired, applied, err := Apply(text, DefaultRules)
	if err != nil {
		return nil, err
	}
	res.Applied = append(res.Applied, applied...)

	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, &ExtractionError{Step: "parse", Err: err, Snippet: Snippet(repaired)}
	}
	return v, nil
}

// Apply runs rules in order and returns the final text and the names of the rules
// that changed it.
func Apply(text string, rules []Rule) (string, []string, error) {
	var applied []string
	for _, r := range rules {
		out, err := r.Apply(text)
		if err != nil {
			return "", applied, &ExtractionError{Step: r.Name, Err: err, Snippet: Snippet(text)}
		}
		if out != text {
			applied = append(applied, r.Name)
		}
		text = out
	}
	return text, applied, nil
}
