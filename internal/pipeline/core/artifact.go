package core

import (
	"time"

	"github.com/reelforge/reelforge/internal/models"
)

// ArtifactType identifies the type of content in an artifact.
type ArtifactType string

const (
	// ArtifactTypeSubject represents the generated topic text.
	ArtifactTypeSubject ArtifactType = "subject"

	// ArtifactTypeScript represents the narration script.
	ArtifactTypeScript ArtifactType = "script"

	// ArtifactTypeMetadata represents title/description metadata.
	ArtifactTypeMetadata ArtifactType = "metadata"

	// ArtifactTypePrompts represents image prompts.
	ArtifactTypePrompts ArtifactType = "prompts"

	// ArtifactTypeImage represents a downloaded image file.
	ArtifactTypeImage ArtifactType = "image"

	// ArtifactTypeNarration represents the synthesized speech file.
	ArtifactTypeNarration ArtifactType = "narration"

	// ArtifactTypeCaptions represents the subtitle file.
	ArtifactTypeCaptions ArtifactType = "captions"

	// ArtifactTypeVideo represents the rendered video file.
	ArtifactTypeVideo ArtifactType = "video"

	// ArtifactTypePublication represents a published upload.
	ArtifactTypePublication ArtifactType = "publication"
)

// Artifact represents an output from a pipeline stage.
type Artifact struct {
	// ID is a unique identifier for this artifact.
	ID models.ULID

	// Type identifies the content type.
	Type ArtifactType

	// FilePath is the path to the artifact file (if file-based).
	FilePath string

	// CreatedBy is the stage ID that created this artifact.
	CreatedBy string

	// RecordCount is the number of records in the artifact.
	RecordCount int

	// FileSize is the size in bytes (if file-based).
	FileSize int64

	// CreatedAt is when the artifact was created.
	CreatedAt time.Time

	// Metadata contains additional artifact-specific data.
	Metadata map[string]any
}

// NewArtifact creates a new artifact with the given type.
func NewArtifact(artifactType ArtifactType, createdBy string) Artifact {
	return Artifact{
		ID:        models.NewULID(),
		Type:      artifactType,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// WithFilePath sets the file path for the artifact.
func (a Artifact) WithFilePath(path string) Artifact {
	a.FilePath = path
	return a
}

// WithRecordCount sets the record count for the artifact.
func (a Artifact) WithRecordCount(count int) Artifact {
	a.RecordCount = count
	return a
}

// WithFileSize sets the file size for the artifact.
func (a Artifact) WithFileSize(size int64) Artifact {
	a.FileSize = size
	return a
}

// WithMetadata adds metadata to the artifact.
func (a Artifact) WithMetadata(key string, value any) Artifact {
	a.Metadata[key] = value
	return a
}
