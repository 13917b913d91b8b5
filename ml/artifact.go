package ml

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	ArtifactTypeModel    = "model"
	ArtifactTypeDataset  = "dataset"
	ArtifactTypePipeline = "pipeline_config"
)

var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidArtifact = errors.New("invalid artifact id")
)

// Artifact is a versioned pipeline output (dataset, model, pipeline config).
// Fields are set at construction and treated as read-only afterwards.
type Artifact struct {
	AssetPath string         `json:"asset_path"`
	Version   string         `json:"version"`
	Data      []byte         `json:"data"`
	Metadata  map[string]any `json:"metadata"`
	Type      string         `json:"type"`
	Tags      []string       `json:"tags"`
}

type ArtifactOption func(*Artifact)

func WithMetadata(metadata map[string]any) ArtifactOption {
	return func(a *Artifact) {
		for key, value := range metadata {
			a.Metadata[key] = value
		}
	}
}

func WithTags(tags ...string) ArtifactOption {
	return func(a *Artifact) {
		a.Tags = append(a.Tags, tags...)
	}
}

// NewArtifact validates the required fields and builds an Artifact. A nil
// payload counts as missing; an empty one does not.
func NewArtifact(assetPath, version string, data []byte, artifactType string, opts ...ArtifactOption) (*Artifact, error) {
	switch {
	case assetPath == "":
		return nil, fmt.Errorf("%w: asset_path", ErrMissingField)
	case version == "":
		return nil, fmt.Errorf("%w: version", ErrMissingField)
	case data == nil:
		return nil, fmt.Errorf("%w: data", ErrMissingField)
	case artifactType == "":
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}

	artifact := &Artifact{
		AssetPath: assetPath,
		Version:   version,
		Data:      append([]byte{}, data...),
		Metadata:  make(map[string]any),
		Type:      artifactType,
		Tags:      make([]string, 0),
	}
	for _, opt := range opts {
		opt(artifact)
	}
	return artifact, nil
}

// ID returns base64url(asset_path) + ":" + version. Two artifacts with the
// same path and version share an ID.
func (a *Artifact) ID() string {
	return base64.URLEncoding.EncodeToString([]byte(a.AssetPath)) + ":" + a.Version
}

// ParseArtifactID is the inverse of Artifact.ID.
func ParseArtifactID(id string) (assetPath, version string, err error) {
	encoded, version, ok := strings.Cut(id, ":")
	if !ok || encoded == "" || version == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidArtifact, id)
	}
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrInvalidArtifact, id, err)
	}
	return string(decoded), version, nil
}

// ToMap projects every stored field into a generic map for an external writer.
func (a *Artifact) ToMap() map[string]any {
	metadata := make(map[string]any, len(a.Metadata))
	for key, value := range a.Metadata {
		metadata[key] = value
	}
	return map[string]any{
		"asset_path": a.AssetPath,
		"version":    a.Version,
		"data":       a.Read(),
		"metadata":   metadata,
		"type":       a.Type,
		"tags":       append([]string{}, a.Tags...),
	}
}

// Read returns a copy of the raw payload. Interpretation is owned by Type.
func (a *Artifact) Read() []byte {
	return append([]byte{}, a.Data...)
}
