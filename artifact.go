// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"time"
)

// Artifact represents a named output object produced by a worker mid- or
// end-of-task. Artifacts may be streamed in chunks: chunks for the same
// artifact name arrive in emission order, Append marks a continuation of a
// previous chunk and LastChunk marks the final one.
type Artifact struct {
	// ArtifactID uniquely identifies this artifact record.
	ArtifactID string `json:"artifactId"`

	// Name is the caller-visible name of the artifact. Chunks of one
	// streamed artifact share a name.
	Name string `json:"name"`

	// MimeType describes the artifact payload.
	MimeType string `json:"mimeType,omitzero"`

	// Parts carries inline content for small artifacts.
	Parts PartList `json:"parts,omitzero"`

	// URI references externally stored payload bytes for large artifacts.
	URI string `json:"uri,omitzero"`

	// Append is true when this record continues a previously emitted chunk
	// of the same artifact rather than starting a new one.
	Append bool `json:"append,omitzero"`

	// LastChunk is true when this record finalizes the artifact.
	LastChunk bool `json:"lastChunk,omitzero"`

	// Timestamp records when the artifact chunk was emitted.
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Validate ensures the Artifact is valid. An artifact must carry a name and
// at least one payload source (inline parts or a URI reference).
func (a *Artifact) Validate() error {
	if a.Name == "" {
		return &InvalidParamsError{Detail: "artifact name cannot be empty"}
	}
	if len(a.Parts) == 0 && a.URI == "" {
		return &InvalidParamsError{Detail: "artifact must carry parts or a payload URI"}
	}
	if len(a.Parts) > 0 {
		if err := a.Parts.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewTextArtifact creates a finalized single-chunk artifact holding text.
func NewTextArtifact(name, text string) Artifact {
	return Artifact{
		Name:      name,
		MimeType:  "text/plain",
		Parts:     PartList{NewTextPart(text)},
		LastChunk: true,
		Timestamp: time.Now().UTC(),
	}
}
