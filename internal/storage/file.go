package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"retailpulse/internal/config"
	"retailpulse/internal/errors"
	"retailpulse/internal/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var fileVersion = regexp.MustCompile(`^(.+)_(\d{8}_\d{6}(?:_\d{3})?)\.csv$`)

// FileStore keeps each table version as <root>/<layer>/<name>_<timestamp>.csv
// next to a <name>_<timestamp>.schema.json file holding its column kinds.
// Versions written within the same second get a _<seq> suffix.
type FileStore struct {
	paths  *config.Paths
	now    Clock
	logger *slog.Logger
}

// NewFileStore creates a CSV store rooted at paths.
func NewFileStore(paths *config.Paths, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		paths:  paths,
		now:    time.Now,
		logger: logger.With(slog.String("component", "file_store")),
	}
}

// WithClock replaces the version clock.
func (s *FileStore) WithClock(now Clock) *FileStore {
	s.now = now
	return s
}

// Write writes t as a CSV file with a UTF-8 BOM so spreadsheet tools detect
// the encoding.
func (s *FileStore) Write(ctx context.Context, t *table.Table, layer Layer, name string) (string, error) {
	dir, err := s.layerDir(layer, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.NewStorageError("failed to create layer directory", err).WithContext("dir", dir)
	}

	file, path, err := createVersion(dir, name+"_"+s.now().Format(TimestampLayout))
	if err != nil {
		return "", errors.NewStorageError("failed to create table file", err).WithContext("dir", dir)
	}
	if err := writeCSV(file, t); err != nil {
		_ = os.Remove(path)
		return "", errors.NewStorageError("failed to write table", err).WithContext("path", path)
	}
	if err := writeSchema(schemaPath(path), schemaOf(t)); err != nil {
		_ = os.Remove(path)
		return "", errors.NewStorageError("failed to write table schema", err).WithContext("path", path)
	}

	s.logger.InfoContext(ctx, "table written",
		slog.String("layer", string(layer)),
		slog.String("table", name),
		slog.String("path", path),
		slog.Int("rows", t.Len()))
	return path, nil
}

// createVersion creates the first free file base[_<seq>].csv in dir.
func createVersion(dir, base string) (*os.File, string, error) {
	for seq := 0; seq < maxVersionsPerStamp; seq++ {
		path := filepath.Join(dir, versioned(base, seq)+".csv")
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		return file, path, err
	}
	return nil, "", fmt.Errorf("too many versions of %s", base)
}

func schemaPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, ".csv") + ".schema.json"
}

func writeSchema(path string, columns []catalogColumn) error {
	data, err := json.Marshal(columns)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// readSchema returns the column kinds stored next to a table file. Files
// written without one yield a nil map and fall back to inference.
func readSchema(path string) (map[string]columnKind, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var columns []catalogColumn
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("corrupt schema: %w", err)
	}
	kinds := make(map[string]columnKind, len(columns))
	for _, c := range columns {
		kinds[c.Name] = c.Kind
	}
	return kinds, nil
}

func writeCSV(file *os.File, t *table.Table) error {
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	columns := t.Columns()
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	record := make([]string, len(columns))
	for i := 0; i < t.Len(); i++ {
		for j, name := range columns {
			record[j] = formatCell(t.Value(name, i))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// ReadLatest reads the newest version of a table.
func (s *FileStore) ReadLatest(ctx context.Context, layer Layer, name string) (*table.Table, error) {
	versions, err := s.versions(layer)
	if err != nil {
		return nil, err
	}
	files := versions[name]
	if len(files) == 0 {
		return nil, errors.NewNotFoundError(fmt.Sprintf("%s table %s", layer, name))
	}
	path := files[len(files)-1]

	t, err := readCSV(path)
	if err != nil {
		return nil, errors.NewStorageError("failed to read table", err).WithContext("path", path)
	}
	s.logger.DebugContext(ctx, "table read",
		slog.String("layer", string(layer)),
		slog.String("table", name),
		slog.String("path", path),
		slog.Int("rows", t.Len()))
	return t, nil
}

func readCSV(path string) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kinds, err := readSchema(schemaPath(path))
	if err != nil {
		return nil, err
	}
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	header := rows[0]
	t := table.New(header...)
	values := make([]any, len(header))
	for i, row := range rows[1:] {
		for j := range values {
			if values[j], err = decodeText(row[j], kinds[header[j]]); err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i+2, header[j], err)
			}
		}
		if err := t.AppendRow(values...); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return t, nil
}

// decodeText parses a stored cell by its column kind. Unknown kinds are
// inferred from the text.
func decodeText(s string, kind columnKind) (any, error) {
	if s == "" {
		return nil, nil
	}
	if kind == "" {
		return inferCell(s), nil
	}
	return decodeSQL(s, kind)
}

// List returns the table names with at least one version in layer.
func (s *FileStore) List(_ context.Context, layer Layer) ([]string, error) {
	versions, err := s.versions(layer)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(versions))
	for name := range versions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// versions maps table names to their files in ascending version order.
func (s *FileStore) versions(layer Layer) (map[string][]string, error) {
	dir, err := s.paths.LayerDir(string(layer))
	if err != nil {
		return nil, errors.NewAppValidationError(err.Error())
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, errors.NewStorageError("failed to list layer", err).WithContext("dir", dir)
	}

	out := make(map[string][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileVersion.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		out[m[1]] = append(out[m[1]], filepath.Join(dir, entry.Name()))
	}
	for _, files := range out {
		sort.Strings(files)
	}
	return out, nil
}

func (s *FileStore) layerDir(layer Layer, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", errors.NewAppValidationError(err.Error())
	}
	dir, err := s.paths.LayerDir(strings.ToLower(string(layer)))
	if err != nil {
		return "", errors.NewAppValidationError(err.Error())
	}
	return dir, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
