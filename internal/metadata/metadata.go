// Package metadata loads the table descriptors that drive table selection
// and prompt construction. Descriptors are read once at start-up and are
// never mutated afterwards.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/askdb/askdb/internal/storage"
)

// MaxDocumentBytes bounds metadata documents fetched from object storage.
const MaxDocumentBytes = 16 << 20

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

type ColumnDescriptor struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type TableDescriptor struct {
	Name        string             `json:"table_name"`
	Description string             `json:"description,omitempty"`
	Columns     []ColumnDescriptor `json:"columns"`
	Source      string             `json:"source,omitempty"`
}

// LoadError reports a metadata document that could not be read or parsed.
type LoadError struct {
	Location string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load table metadata from %s: %v", e.Location, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FormatFromPath picks YAML for .yaml/.yml and JSON for everything else.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func LoadFile(path string, logger *slog.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Location: path, Err: err}
	}
	tables, err := Parse(data, FormatFromPath(path), logger)
	if err != nil {
		return nil, &LoadError{Location: path, Err: err}
	}
	return NewStore(path, tables), nil
}

func LoadObject(ctx context.Context, store storage.ObjectStore, key string, logger *slog.Logger) (*Store, error) {
	location := "object " + key
	if store == nil {
		return nil, &LoadError{Location: location, Err: fmt.Errorf("object store is not configured")}
	}
	data, err := storage.ReadObject(ctx, store, key, MaxDocumentBytes)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	tables, err := Parse(data, FormatFromPath(key), logger)
	if err != nil {
		return nil, &LoadError{Location: location, Err: err}
	}
	return NewStore(location, tables), nil
}

// Parse decodes a metadata document holding either a single table object or
// a list of them. Column entries that are neither a string nor a mapping
// with a name are dropped with a warning.
func Parse(data []byte, format Format, logger *slog.Logger) ([]TableDescriptor, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported metadata format %q", format)
	}

	var entries []any
	switch typed := doc.(type) {
	case nil:
		return nil, fmt.Errorf("metadata document is empty")
	case []any:
		entries = typed
	case map[string]any:
		entries = []any{typed}
	default:
		return nil, fmt.Errorf("metadata document must be a table object or a list of tables, got %T", doc)
	}

	tables := make([]TableDescriptor, 0, len(entries))
	for i, entry := range entries {
		raw, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("table entry %d must be an object, got %T", i, entry)
		}
		tables = append(tables, normalizeTable(i, raw, logger))
	}
	return tables, nil
}

func normalizeTable(index int, raw map[string]any, logger *slog.Logger) TableDescriptor {
	table := TableDescriptor{
		Name:        stringField(raw, "table_name", "name"),
		Description: stringField(raw, "description"),
		Source:      stringField(raw, "source"),
	}
	if table.Name == "" {
		logger.Warn("table metadata entry has no name", "index", index)
	}

	rawColumns, present := raw["columns"]
	if !present || rawColumns == nil {
		return table
	}
	list, ok := rawColumns.([]any)
	if !ok {
		logger.Warn("table columns are not a list", "table", table.Name, "type", fmt.Sprintf("%T", rawColumns))
		return table
	}

	table.Columns = make([]ColumnDescriptor, 0, len(list))
	for position, item := range list {
		column, ok := normalizeColumn(item)
		if !ok {
			logger.Warn("skipping malformed column metadata",
				"table", table.Name,
				"position", position,
				"value", fmt.Sprintf("%v", item),
			)
			continue
		}
		table.Columns = append(table.Columns, column)
	}
	return table
}

func normalizeColumn(item any) (ColumnDescriptor, bool) {
	switch typed := item.(type) {
	case string:
		name := strings.TrimSpace(typed)
		if name == "" {
			return ColumnDescriptor{}, false
		}
		return ColumnDescriptor{Name: name}, true
	case map[string]any:
		name := stringField(typed, "name", "column_name")
		if name == "" {
			return ColumnDescriptor{}, false
		}
		return ColumnDescriptor{Name: name, Type: stringField(typed, "type", "data_type")}, true
	default:
		return ColumnDescriptor{}, false
	}
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key].(string)
		if ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
