// Package config persists user preferences for uploads, dedupe, and
// scanning heuristics at ~/.disdrop/config.json. The Discord token is never
// part of the file; it comes from the environment or a flag at run time.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foxhunt/disdrop/internal/scanner"
)

// Token types accepted by the Discord API layer.
const (
	TokenTypeBot  = "bot"
	TokenTypeUser = "user"
)

// Media type selections for uploads.
const (
	MediaAll    = "all"
	MediaVideos = "videos"
	MediaGifs   = "gifs"
	MediaImages = "images"
)

// Config holds the persisted settings.
type Config struct {
	TokenType  string `json:"token_type"`
	MediaTypes string `json:"media_types"`

	// Upload behavior
	UploadDelayMS int     `json:"upload_delay_ms"`
	Concurrency   int     `json:"concurrency"`
	MaxFileMB     float64 `json:"max_file_mb"`
	SkipOversize  bool    `json:"skip_oversize"`
	SeparatorText string  `json:"separator_text"`

	// Dedupe behavior
	HistoryMaxMessages int  `json:"history_max_messages"`
	PersistDedupe      bool `json:"persist_dedupe"`

	// Scanner heuristics
	MinDistinctSegments int     `json:"min_distinct_segments"`
	SegmentStemRatio    float64 `json:"segment_stem_ratio"`
	DominantRootRatio   float64 `json:"dominant_root_ratio"`

	// Diagnostics
	EnableLogging    bool `json:"enable_logging"`
	LogRetentionDays int  `json:"log_retention_days"`
	EnableFFprobe    bool `json:"enable_ffprobe"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	h := scanner.DefaultHeuristics()
	return &Config{
		TokenType:           TokenTypeBot,
		MediaTypes:          MediaAll,
		UploadDelayMS:       1500,
		Concurrency:         3,
		MaxFileMB:           25,
		SkipOversize:        true,
		SeparatorText:       "----------------------------------------",
		HistoryMaxMessages:  5000,
		PersistDedupe:       true,
		MinDistinctSegments: h.MinDistinctSegments,
		SegmentStemRatio:    h.SegmentStemRatio,
		DominantRootRatio:   h.DominantRootRatio,
		EnableLogging:       true,
		LogRetentionDays:    30,
		EnableFFprobe:       false,
	}
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".disdrop", "config.json"), nil
}

// Load reads the configuration from disk.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from an explicit path. A missing file
// yields the defaults; a present file has its missing fields backfilled so
// configs written by older versions keep working.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.TokenType != TokenTypeBot && cfg.TokenType != TokenTypeUser {
		cfg.TokenType = defaults.TokenType
	}
	switch cfg.MediaTypes {
	case MediaAll, MediaVideos, MediaGifs, MediaImages:
	default:
		cfg.MediaTypes = defaults.MediaTypes
	}
	if cfg.UploadDelayMS <= 0 {
		cfg.UploadDelayMS = defaults.UploadDelayMS
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.MaxFileMB <= 0 {
		cfg.MaxFileMB = defaults.MaxFileMB
	}
	if cfg.SeparatorText == "" {
		cfg.SeparatorText = defaults.SeparatorText
	}
	if cfg.HistoryMaxMessages <= 0 {
		cfg.HistoryMaxMessages = defaults.HistoryMaxMessages
	}
	if cfg.MinDistinctSegments <= 0 {
		cfg.MinDistinctSegments = defaults.MinDistinctSegments
	}
	if cfg.SegmentStemRatio <= 0 || cfg.SegmentStemRatio > 1 {
		cfg.SegmentStemRatio = defaults.SegmentStemRatio
	}
	if cfg.DominantRootRatio <= 0 || cfg.DominantRootRatio > 1 {
		cfg.DominantRootRatio = defaults.DominantRootRatio
	}
	if cfg.LogRetentionDays <= 0 {
		cfg.LogRetentionDays = defaults.LogRetentionDays
	}

	return &cfg, nil
}

// Save writes the configuration to disk.
func (cfg *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

// SaveTo writes the configuration to an explicit path.
func (cfg *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Heuristics converts the persisted threshold fields into the scanner's
// form.
func (cfg *Config) Heuristics() scanner.Heuristics {
	return scanner.Heuristics{
		MinDistinctSegments: cfg.MinDistinctSegments,
		SegmentStemRatio:    cfg.SegmentStemRatio,
		DominantRootRatio:   cfg.DominantRootRatio,
	}
}

// MaxFileBytes converts the megabyte limit to bytes.
func (cfg *Config) MaxFileBytes() int64 {
	return int64(cfg.MaxFileMB * 1024 * 1024)
}

// Includes reports whether the configured media selection covers path.
func (cfg *Config) Includes(isVideo, isGif, isImage bool) bool {
	switch cfg.MediaTypes {
	case MediaVideos:
		return isVideo
	case MediaGifs:
		return isGif
	case MediaImages:
		return isImage
	default:
		return isVideo || isGif || isImage
	}
}
