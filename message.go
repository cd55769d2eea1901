// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Role represents the role of a message sender.
type Role string

// Role constants for message senders.
const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Part kind discriminators carried in the "kind" field of every part.
const (
	PartKindText = "text"
	PartKindData = "data"
	PartKindFile = "file"
)

// Part is a single typed content segment of a message or artifact. The set
// of kinds is closed: text, data, file, plus UnknownPart for forward
// compatibility with kinds this server does not understand.
type Part interface {
	// PartKind returns the wire discriminator for the part.
	PartKind() string

	// Validate ensures the part is in a valid state.
	Validate() error
}

// TextPart represents a plain text segment.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*TextPart)(nil)

// PartKind implements [Part].
func (p *TextPart) PartKind() string { return PartKindText }

// Validate implements [Part].
func (p *TextPart) Validate() error {
	if p.Text == "" {
		return &InvalidParamsError{Detail: "text part text cannot be empty"}
	}
	return nil
}

// NewTextPart creates a new TextPart.
func NewTextPart(text string) *TextPart {
	return &TextPart{Kind: PartKindText, Text: text}
}

// DataPart represents a structured data segment. The payload is retained as
// raw JSON so arbitrary client data survives round-trips untouched.
type DataPart struct {
	Kind     string         `json:"kind"`
	MimeType string         `json:"mimeType,omitzero"`
	Data     jsontext.Value `json:"data"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*DataPart)(nil)

// PartKind implements [Part].
func (p *DataPart) PartKind() string { return PartKindData }

// Validate implements [Part].
func (p *DataPart) Validate() error {
	if len(p.Data) == 0 {
		return &InvalidParamsError{Detail: "data part data cannot be empty"}
	}
	return nil
}

// NewDataPart creates a new DataPart from raw JSON data.
func NewDataPart(mimeType string, data []byte) *DataPart {
	return &DataPart{Kind: PartKindData, MimeType: mimeType, Data: jsontext.Value(data)}
}

// FilePart represents a file referenced by URI. File payloads are never
// inlined into the event stream; the URI points at externally stored bytes.
type FilePart struct {
	Kind     string         `json:"kind"`
	Name     string         `json:"name,omitzero"`
	MimeType string         `json:"mimeType,omitzero"`
	URI      string         `json:"uri"`
	Metadata map[string]any `json:"metadata,omitzero"`
}

var _ Part = (*FilePart)(nil)

// PartKind implements [Part].
func (p *FilePart) PartKind() string { return PartKindFile }

// Validate implements [Part].
func (p *FilePart) Validate() error {
	if p.URI == "" {
		return &InvalidParamsError{Detail: "file part URI cannot be empty"}
	}
	return nil
}

// NewFilePart creates a new FilePart.
func NewFilePart(name, mimeType, uri string) *FilePart {
	return &FilePart{Kind: PartKindFile, Name: name, MimeType: mimeType, URI: uri}
}

// UnknownPart preserves a part whose kind this server does not recognize.
// The raw JSON is carried through verbatim rather than silently dropped.
type UnknownPart struct {
	Kind string
	Raw  jsontext.Value
}

var _ Part = (*UnknownPart)(nil)

// PartKind implements [Part].
func (p *UnknownPart) PartKind() string { return p.Kind }

// Validate implements [Part].
func (p *UnknownPart) Validate() error {
	if p.Kind == "" {
		return &InvalidParamsError{Detail: "part kind cannot be empty"}
	}
	return nil
}

// PartList is an ordered sequence of parts with kind-dispatched JSON
// decoding.
type PartList []Part

// MarshalJSON implements json.Marshaler for the part union.
func (l PartList) MarshalJSON() ([]byte, error) {
	raw := make([]jsontext.Value, len(l))
	for i, p := range l {
		switch v := p.(type) {
		case *UnknownPart:
			raw[i] = v.Raw
		default:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal part %d: %w", i, err)
			}
			raw[i] = jsontext.Value(data)
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler for the part union, dispatching
// on the "kind" discriminator.
func (l *PartList) UnmarshalJSON(data []byte) error {
	var raw []jsontext.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parts := make(PartList, 0, len(raw))
	for i, item := range raw {
		var probe struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(item, &probe); err != nil {
			return fmt.Errorf("unmarshal part %d: %w", i, err)
		}

		switch probe.Kind {
		case PartKindText:
			var p TextPart
			if err := json.Unmarshal(item, &p); err != nil {
				return fmt.Errorf("unmarshal text part %d: %w", i, err)
			}
			parts = append(parts, &p)
		case PartKindData:
			var p DataPart
			if err := json.Unmarshal(item, &p); err != nil {
				return fmt.Errorf("unmarshal data part %d: %w", i, err)
			}
			parts = append(parts, &p)
		case PartKindFile:
			var p FilePart
			if err := json.Unmarshal(item, &p); err != nil {
				return fmt.Errorf("unmarshal file part %d: %w", i, err)
			}
			parts = append(parts, &p)
		default:
			parts = append(parts, &UnknownPart{Kind: probe.Kind, Raw: item})
		}
	}

	*l = parts
	return nil
}

// Validate ensures every part in the list is valid.
func (l PartList) Validate() error {
	if len(l) == 0 {
		return &InvalidParamsError{Detail: "message must contain at least one part"}
	}
	for i, p := range l {
		if p == nil {
			return &InvalidParamsError{Detail: fmt.Sprintf("part at index %d cannot be nil", i)}
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("part at index %d is invalid: %w", i, err)
		}
	}
	return nil
}

// Message represents a single turn in a task's conversation.
type Message struct {
	Role      Role      `json:"role"`
	Parts     PartList  `json:"parts"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Validate ensures the Message is valid.
func (m *Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAgent {
		return &InvalidParamsError{Detail: fmt.Sprintf("invalid message role: %q", m.Role)}
	}
	return m.Parts.Validate()
}

// NewUserTextMessage creates a user message containing a single text part.
func NewUserTextMessage(text string) Message {
	return Message{
		Role:      RoleUser,
		Parts:     PartList{NewTextPart(text)},
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentTextMessage creates an agent message containing a single text part.
func NewAgentTextMessage(text string) Message {
	return Message{
		Role:      RoleAgent,
		Parts:     PartList{NewTextPart(text)},
		Timestamp: time.Now().UTC(),
	}
}

// TextContent extracts and joins the text content of all text parts in the
// message, one part per line.
func (m *Message) TextContent() string {
	var texts []string
	for _, p := range m.Parts {
		if tp, ok := p.(*TextPart); ok {
			texts = append(texts, tp.Text)
		}
	}
	return strings.Join(texts, "\n")
}
