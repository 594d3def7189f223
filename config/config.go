// Package config holds the loader configuration: size limits, extension
// routing tables, merge volume sizing, and paths for state and output.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full loader configuration.
type Config struct {
	// OutputDirName is the directory (relative to the target's parent)
	// receiving individually converted files.
	OutputDirName string `yaml:"output_dir"`

	// MergedDirName receives merged volumes and rerouted PDFs.
	MergedDirName string `yaml:"merged_dir"`

	// MaxFileSizeMB is the per-file size ceiling; larger files are skipped.
	MaxFileSizeMB int `yaml:"max_file_size_mb"`

	// MaxCharsPerVolume bounds a merged volume's total character count.
	MaxCharsPerVolume int `yaml:"max_chars_per_volume"`

	// VisualDensityThreshold is the chars-per-visual ratio below which an
	// office document is rendered to PDF instead of extracted as text.
	VisualDensityThreshold int `yaml:"visual_density_threshold"`

	// VisualCountLimit reroutes to PDF outright when a document carries at
	// least this many visual elements, regardless of density.
	VisualCountLimit int `yaml:"visual_count_limit"`

	// MaxParts caps how many parts a single oversized file may be split
	// into before the remainder is dropped with a warning.
	MaxParts int `yaml:"max_parts"`

	// RetryAttempts bounds external tool invocations (soffice etc.).
	RetryAttempts int `yaml:"retry_attempts"`

	// StateDBName is the SQLite file (inside the output dir) tracking
	// processed-file identity for incremental runs.
	StateDBName string `yaml:"state_db"`

	// SofficePath overrides the LibreOffice binary lookup.
	SofficePath string `yaml:"soffice_path"`

	// SkipPPT drops .pptx/.ppt files before any analysis.
	SkipPPT bool `yaml:"skip_ppt"`

	Extensions ExtensionSets `yaml:"extensions"`

	Logger *slog.Logger `yaml:"-"`
}

// ExtensionSets are the routing tables of the classifier. All entries are
// lowercase and include the leading dot.
type ExtensionSets struct {
	Skip         []string `yaml:"skip"`
	OfficeModern []string `yaml:"office_modern"`
	OfficeLegacy []string `yaml:"office_legacy"`
	Generic      []string `yaml:"generic"`
	Visio        []string `yaml:"visio"`
	Image        []string `yaml:"image"`
	Archive      []string `yaml:"archive"`
	Text         []string `yaml:"text"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDirName:          "converted_files",
		MergedDirName:          "converted_files_merged",
		MaxFileSizeMB:          100,
		MaxCharsPerVolume:      5_000_000,
		VisualDensityThreshold: 300,
		VisualCountLimit:       5,
		MaxParts:               10_000,
		RetryAttempts:          3,
		StateDBName:            "loader_state.db",
		Extensions: ExtensionSets{
			Skip: []string{
				".one", ".onetoc2", ".accdb", ".mdb",
				".mp3", ".wav", ".m4a", ".flac",
				".mp4", ".avi", ".mov", ".wmv",
				".dwg", ".dxf",
				".exe", ".dll", ".so", ".dylib",
				".bin", ".dat", ".iso", ".img",
			},
			OfficeModern: []string{".docx", ".xlsx", ".pptx", ".xls"},
			OfficeLegacy: []string{".doc", ".ppt"},
			Generic:      []string{".rtf", ".epub", ".msg", ".eml", ".mbox", ".html", ".htm"},
			Visio:        []string{".vsdx", ".vsd"},
			Image:        []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif", ".webp"},
			Archive:      []string{".zip", ".7z", ".rar", ".tar", ".gz", ".tgz", ".lzh"},
			Text: []string{
				".txt", ".md", ".markdown", ".csv", ".tsv", ".json", ".xml",
				".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf", ".log",
				".py", ".js", ".ts", ".go", ".java", ".c", ".cpp", ".h",
				".sh", ".bat", ".ps1", ".sql",
			},
		},
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.OutputDirName == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.MergedDirName == "" {
		return fmt.Errorf("merged_dir is required")
	}
	if c.OutputDirName == c.MergedDirName {
		return fmt.Errorf("output_dir and merged_dir must differ")
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max_file_size_mb must be > 0")
	}
	if c.MaxCharsPerVolume <= 0 {
		return fmt.Errorf("max_chars_per_volume must be > 0")
	}
	if c.VisualDensityThreshold <= 0 {
		return fmt.Errorf("visual_density_threshold must be > 0")
	}
	if c.VisualCountLimit <= 0 {
		return fmt.Errorf("visual_count_limit must be > 0")
	}
	if c.MaxParts <= 0 {
		return fmt.Errorf("max_parts must be > 0")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("retry_attempts must be > 0")
	}
	return nil
}

// MaxFileBytes returns the per-file size ceiling in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileSizeMB) * 1024 * 1024 }
