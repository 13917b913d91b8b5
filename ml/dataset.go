package ml

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const defaultTableCacheSize = 64

var tableCache, _ = lru.New[string, *Table](defaultTableCacheSize)

// SetTableCacheSize resizes the cache of decoded dataset tables.
func SetTableCacheSize(size int) {
	if size <= 0 {
		size = defaultTableCacheSize
	}
	tableCache.Resize(size)
}

// Dataset is an Artifact of type "dataset" whose payload is CSV text.
type Dataset struct {
	*Artifact
}

// WithEncoding records the text encoding of the CSV payload, e.g. "gbk".
func WithEncoding(encoding string) ArtifactOption {
	return WithMetadata(map[string]any{"encoding": encoding})
}

func NewDataset(name, assetPath, version string, data []byte, opts ...ArtifactOption) (*Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	opts = append([]ArtifactOption{WithMetadata(map[string]any{"name": name})}, opts...)
	artifact, err := NewArtifact(assetPath, version, data, ArtifactTypeDataset, opts...)
	if err != nil {
		return nil, err
	}
	return &Dataset{Artifact: artifact}, nil
}

// DatasetFromTable serializes table as UTF-8 CSV.
func DatasetFromTable(name, assetPath, version string, table *Table) (*Dataset, error) {
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("encode dataset %s: %w", name, err)
	}
	return NewDataset(name, assetPath, version, buf.Bytes())
}

func (d *Dataset) Name() string {
	name, _ := d.Metadata["name"].(string)
	return name
}

func (d *Dataset) Encoding() string {
	encoding, _ := d.Metadata["encoding"].(string)
	return encoding
}

// Table decodes the payload. Decoded tables are cached; callers always get
// their own copy.
func (d *Dataset) Table() (*Table, error) {
	key := d.cacheKey()
	if table, ok := tableCache.Get(key); ok {
		return table.Clone(), nil
	}

	reader, err := d.textReader()
	if err != nil {
		return nil, err
	}
	table, err := ParseCSV(reader)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.Name(), err)
	}
	tableCache.Add(key, table)
	logger.Debug("decoded dataset",
		zap.String("dataset", d.Name()),
		zap.String("id", d.ID()),
		zap.Int("columns", len(table.Columns)),
		zap.Int("rows", table.Rows()),
	)
	return table.Clone(), nil
}

func (d *Dataset) textReader() (io.Reader, error) {
	raw := bytes.NewReader(d.Data)
	name := strings.ToLower(strings.TrimSpace(d.Encoding()))
	if name == "" || name == "utf-8" || name == "utf8" {
		return raw, nil
	}
	encoding, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: unsupported encoding %q: %w", d.Name(), name, err)
	}
	return transform.NewReader(raw, encoding.NewDecoder()), nil
}

func (d *Dataset) cacheKey() string {
	sum := sha256.Sum256(d.Data)
	return d.ID() + "@" + d.Encoding() + "@" + hex.EncodeToString(sum[:8])
}
