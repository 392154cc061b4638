package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved data directories of one storage root
type Paths struct {
	DataDir   string
	BronzeDir string
	SilverDir string
	GoldDir   string
	ReportDir string
}

// NewPaths resolves the layer directories under root
func NewPaths(root string) (*Paths, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve data root %q: %w", root, err)
	}
	return &Paths{
		DataDir:   abs,
		BronzeDir: filepath.Join(abs, "bronze"),
		SilverDir: filepath.Join(abs, "silver"),
		GoldDir:   filepath.Join(abs, "gold"),
		ReportDir: filepath.Join(abs, "reports"),
	}, nil
}

// Paths resolves the storage root of the configuration
func (c *Config) Paths() (*Paths, error) {
	return NewPaths(c.Storage.Root)
}

// LayerDir returns the directory of a layer name (bronze, silver or gold)
func (p *Paths) LayerDir(layer string) (string, error) {
	switch layer {
	case "bronze":
		return p.BronzeDir, nil
	case "silver":
		return p.SilverDir, nil
	case "gold":
		return p.GoldDir, nil
	default:
		return "", fmt.Errorf("unknown layer %q", layer)
	}
}

// EnsureDirectories creates all layer directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.BronzeDir, p.SilverDir, p.GoldDir, p.ReportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
