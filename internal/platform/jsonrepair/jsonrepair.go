// Package jsonrepair recovers one JSON object from free text produced by a
// language model. Extraction is a brace heuristic, not a parser. Parsing
// first rewrites relaxed syntax (single quotes, bare keys, trailing commas)
// into strict JSON and then hands the result to the JSON5 decoder.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

var ErrNotObject = errors.New("jsonrepair: candidate is not a JSON object")

// Extract returns the span from the first '{' to the last '}' of text,
// synthesizing a leading or trailing brace when one is missing.
// Text without any braces comes back as "{" + text + "}".
func Extract(text string) string {
	if !strings.Contains(text, "{") {
		text = "{" + text
	}
	// A '}' that only appears before the first '{' cannot close it.
	if strings.LastIndex(text, "}") < strings.Index(text, "{") {
		text = text + "}"
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	return text[start : end+1]
}

// Validate reports whether candidate parses leniently as a JSON object.
func Validate(candidate string) bool {
	_, err := Parse(candidate)
	return err == nil
}

// Parse leniently decodes candidate into a generic object.
func Parse(candidate string) (map[string]any, error) {
	var out map[string]any
	if err := json5.Unmarshal([]byte(normalize(candidate)), &out); err != nil {
		return nil, fmt.Errorf("jsonrepair: parse: %w", err)
	}
	if out == nil {
		return nil, ErrNotObject
	}
	return out, nil
}

// Decode extracts, leniently parses and then strictly re-decodes text into dst.
// The strict pass gives typed structs the usual encoding/json field mapping.
func Decode(text string, dst any) error {
	obj, err := Parse(Extract(text))
	if err != nil {
		return err
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("jsonrepair: normalize: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("jsonrepair: decode: %w", err)
	}
	return nil
}

// normalize rewrites the relaxed syntax models emit into strict JSON:
// single-quoted strings become double-quoted, bare keys are quoted, raw
// control characters inside strings are escaped and trailing commas before
// a closing bracket are dropped. Anything else passes through untouched so
// genuinely malformed input still fails to parse.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"' || c == '\'':
			i = copyString(&b, s, i)
		case c == ',':
			j := skipSpace(s, i+1)
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				i = j
				continue
			}
			b.WriteByte(c)
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			if k := skipSpace(s, j); k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(s[i:j])
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// copyString writes the string literal starting at s[start] as a
// double-quoted JSON string and returns the index just past it. An
// unterminated literal is closed at end of input.
func copyString(b *strings.Builder, s string, start int) int {
	quote := s[start]
	b.WriteByte('"')
	i := start + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			next := s[i+1]
			if next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte('\\')
				b.WriteByte(next)
			}
			i += 2
			continue
		case c == quote:
			b.WriteByte('"')
			return i + 1
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
		i++
	}
	b.WriteByte('"')
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
