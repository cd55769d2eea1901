// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
)

func TestPartListUnmarshalDispatch(t *testing.T) {
	data := []byte(`[
		{"kind":"text","text":"hello"},
		{"kind":"data","mimeType":"application/json","data":{"n":1}},
		{"kind":"file","name":"report.pdf","mimeType":"application/pdf","uri":"s3://bucket/report.pdf"}
	]`)

	var parts PartList
	if err := json.Unmarshal(data, &parts); err != nil {
		t.Fatalf("unmarshal parts: %v", err)
	}

	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}

	tp, ok := parts[0].(*TextPart)
	if !ok {
		t.Fatalf("expected TextPart, got %T", parts[0])
	}
	if tp.Text != "hello" {
		t.Errorf("expected text %q, got %q", "hello", tp.Text)
	}

	dp, ok := parts[1].(*DataPart)
	if !ok {
		t.Fatalf("expected DataPart, got %T", parts[1])
	}
	if dp.MimeType != "application/json" {
		t.Errorf("expected mime type application/json, got %q", dp.MimeType)
	}

	fp, ok := parts[2].(*FilePart)
	if !ok {
		t.Fatalf("expected FilePart, got %T", parts[2])
	}
	if fp.URI != "s3://bucket/report.pdf" {
		t.Errorf("expected file URI, got %q", fp.URI)
	}
}

func TestPartListUnknownKindPreserved(t *testing.T) {
	data := []byte(`[{"kind":"video","codec":"av1"}]`)

	var parts PartList
	if err := json.Unmarshal(data, &parts); err != nil {
		t.Fatalf("unmarshal parts: %v", err)
	}

	up, ok := parts[0].(*UnknownPart)
	if !ok {
		t.Fatalf("expected UnknownPart, got %T", parts[0])
	}
	if up.Kind != "video" {
		t.Errorf("expected kind video, got %q", up.Kind)
	}

	// Round-trip must carry the raw payload through untouched.
	out, err := json.Marshal(parts)
	if err != nil {
		t.Fatalf("marshal parts: %v", err)
	}

	var again PartList
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("unmarshal round-trip: %v", err)
	}
	up2 := again[0].(*UnknownPart)
	if diff := cmp.Diff(string(up.Raw), string(up2.Raw)); diff != "" {
		t.Errorf("raw payload mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageValidate(t *testing.T) {
	msg := NewUserTextMessage("ping")
	if err := msg.Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}

	msg.Role = "system"
	if err := msg.Validate(); err == nil {
		t.Errorf("expected error for unknown role")
	}

	empty := Message{Role: RoleUser}
	if err := empty.Validate(); err == nil {
		t.Errorf("expected error for message with no parts")
	}
}

func TestMessageTextContent(t *testing.T) {
	msg := Message{
		Role: RoleAgent,
		Parts: PartList{
			NewTextPart("first"),
			NewFilePart("a.txt", "text/plain", "file:///a.txt"),
			NewTextPart("second"),
		},
	}

	if got, want := msg.TextContent(), "first\nsecond"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
