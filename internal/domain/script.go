package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// GenerationMessage is one turn of a chat conversation sent to the model.
type GenerationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

func SystemMessage(content string) GenerationMessage {
	return GenerationMessage{Role: RoleSystem, Content: content}
}

func UserMessage(content string) GenerationMessage {
	return GenerationMessage{Role: RoleUser, Content: content}
}

type MetadataColor struct {
	AccentColor string `json:"accentColor"`
}

type TableDescriptor struct {
	Label string `json:"label"`
}

type VideoMetadata struct {
	Topic             string           `json:"topic"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Width             int              `json:"width"`
	Height            int              `json:"height"`
	Color             MetadataColor    `json:"color"`
	DurationInSeconds int              `json:"durationInSeconds"`
	Style             string           `json:"style"`
	Table             *TableDescriptor `json:"table,omitempty"`
}

// UnmarshalJSON accepts the loose shapes models produce for the optional
// fields: numbers as strings or floats, color as a bare accent string and
// table as a bare label. Values that still cannot be read are left unset so
// the defaults apply.
func (m *VideoMetadata) UnmarshalJSON(data []byte) error {
	type plain VideoMetadata
	aux := struct {
		*plain
		Width             json.RawMessage `json:"width"`
		Height            json.RawMessage `json:"height"`
		Color             json.RawMessage `json:"color"`
		DurationInSeconds json.RawMessage `json:"durationInSeconds"`
		Table             json.RawMessage `json:"table"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if n, ok := looseInt(aux.Width); ok {
		m.Width = n
	}
	if n, ok := looseInt(aux.Height); ok {
		m.Height = n
	}
	if n, ok := looseInt(aux.DurationInSeconds); ok {
		m.DurationInSeconds = n
	}
	if c, ok := looseField(aux.Color, "accentColor"); ok {
		m.Color = MetadataColor{AccentColor: c}
	}
	if isNull(aux.Table) {
		m.Table = nil
	} else if l, ok := looseField(aux.Table, "label"); ok {
		m.Table = &TableDescriptor{Label: l}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) > 0 && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// looseInt reads a JSON number or numeric string. The fractional part is dropped.
func looseInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// looseField reads either a bare string or the string at key of an object.
func looseField(raw json.RawMessage, key string) (string, bool) {
	if len(raw) == 0 || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	if err := json.Unmarshal(obj[key], &s); err != nil {
		return "", false
	}
	return s, true
}

const DefaultAccentColor = "#D20013"

// DefaultVideoMetadata is what fields the model leaves out fall back to.
func DefaultVideoMetadata() VideoMetadata {
	return VideoMetadata{
		Width:             1920,
		Height:            1080,
		Color:             MetadataColor{AccentColor: DefaultAccentColor},
		DurationInSeconds: 120,
		Style:             "normal",
	}
}

// TableLabel is the requested table label, or "" when no table was asked for.
func (m VideoMetadata) TableLabel() string {
	if m.Table == nil {
		return ""
	}
	return strings.TrimSpace(m.Table.Label)
}

// WantsTable follows the two-character label rule.
func (m VideoMetadata) WantsTable() bool {
	return len(m.TableLabel()) >= 2
}

type TableData struct {
	Summary string `json:"summary"`
	Table   string `json:"table"`
}

// NumberedList renders points as "\n1. a\n2. b".
func NumberedList(points []string) string {
	var b strings.Builder
	for i, p := range points {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(p)
	}
	return b.String()
}
