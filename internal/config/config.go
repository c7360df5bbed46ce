package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"radiocat/internal/constants"
)

// Server holds HTTP server configuration.
type Server struct {
	Port string `toml:"port"`
}

// Database holds backing-store configuration. The path may live on a shared
// mount so the transcription worker on another machine can open the same file.
type Database struct {
	Path string `toml:"path"`
}

// Downloader holds get_iplayer configuration.
type Downloader struct {
	Bin                string            `toml:"bin"`
	DownloadPath       string            `toml:"download_path"`
	Options            map[string]string `toml:"options"`
	Channels           []string          `toml:"channels"`
	RefreshIntervalMin int               `toml:"refresh_interval_minutes"`
	MaxDownloadsPerRun int               `toml:"max_downloads_per_run"`
	PollIntervalSec    int               `toml:"poll_interval_seconds"`
}

// Transcription holds whisper configuration for the transcription worker.
type Transcription struct {
	Bin             string   `toml:"bin"`
	OutputPath      string   `toml:"output_path"`
	Model           string   `toml:"model"`
	Language        string   `toml:"language"`
	Formats         []string `toml:"formats"`
	Diarize         bool     `toml:"diarize"`
	PollIntervalSec int      `toml:"poll_interval_seconds"`
}

// Logging holds logger configuration.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config holds all application configuration
type Config struct {
	Server        Server        `toml:"server"`
	Database      Database      `toml:"database"`
	Downloader    Downloader    `toml:"downloader"`
	Transcription Transcription `toml:"transcription"`
	Logging       Logging       `toml:"logging"`
}

// Load reads configuration from a TOML file, fills defaults, and applies
// environment variable overrides. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, "radiocat")

	return &Config{
		Server:   Server{Port: constants.DefaultPort},
		Database: Database{Path: filepath.Join(base, constants.DefaultDBPath)},
		Downloader: Downloader{
			Bin:                constants.DefaultGetIPlayerBin,
			DownloadPath:       filepath.Join(base, constants.DefaultDownloadsDir),
			Options:            map[string]string{"type": "radio"},
			RefreshIntervalMin: int(constants.DefaultRefreshInterval / time.Minute),
			MaxDownloadsPerRun: constants.DefaultDownloadsPerRun,
			PollIntervalSec:    int(constants.DefaultPollInterval / time.Second),
		},
		Transcription: Transcription{
			Bin:             constants.DefaultWhisperBin,
			OutputPath:      filepath.Join(base, constants.DefaultProcessedDir),
			Model:           constants.DefaultWhisperModel,
			Formats:         []string{"txt", "json"},
			PollIntervalSec: int(constants.TranscribePollInterval / time.Second),
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Database.Path = v
	}
	if v, ok := os.LookupEnv("DOWNLOADS_DIR"); ok {
		cfg.Downloader.DownloadPath = v
	}
	if v, ok := os.LookupEnv("TRANSCRIPTS_DIR"); ok {
		cfg.Transcription.OutputPath = v
	}
	if v, ok := os.LookupEnv("WHISPER_MODEL"); ok {
		cfg.Transcription.Model = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv("LOG_FORMAT"); ok {
		cfg.Logging.Format = v
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port == "" {
		errs = append(errs, "server.port cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Server.Port)
		if err != nil {
			errs = append(errs, fmt.Sprintf("server.port must be a valid number, got: %s", c.Server.Port))
		} else if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("server.port must be between 1 and 65535, got: %d", port))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path cannot be empty")
	}

	if c.Downloader.Bin == "" {
		errs = append(errs, "downloader.bin cannot be empty")
	}
	if c.Downloader.DownloadPath == "" {
		errs = append(errs, "downloader.download_path cannot be empty")
	}
	if c.Downloader.PollIntervalSec < 1 {
		errs = append(errs, fmt.Sprintf("downloader.poll_interval_seconds must be >= 1, got: %d", c.Downloader.PollIntervalSec))
	}
	if c.Downloader.MaxDownloadsPerRun < 0 {
		errs = append(errs, fmt.Sprintf("downloader.max_downloads_per_run must be >= 0, got: %d", c.Downloader.MaxDownloadsPerRun))
	}

	if c.Transcription.Bin == "" {
		errs = append(errs, "transcription.bin cannot be empty")
	}
	if c.Transcription.OutputPath == "" {
		errs = append(errs, "transcription.output_path cannot be empty")
	}
	if c.Transcription.Model == "" {
		errs = append(errs, "transcription.model cannot be empty")
	}
	if c.Transcription.PollIntervalSec < 1 {
		errs = append(errs, fmt.Sprintf("transcription.poll_interval_seconds must be >= 1, got: %d", c.Transcription.PollIntervalSec))
	}
	validFormats := map[string]bool{"txt": true, "json": true, "srt": true}
	for _, f := range c.Transcription.Formats {
		if !validFormats[f] {
			errs = append(errs, fmt.Sprintf("transcription.formats must contain only txt, json, srt, got: %s", f))
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of: debug, info, warn, error, got: %s", c.Logging.Level))
	}
	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of: text, json, got: %s", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// DownloadPollInterval returns the download worker poll interval as a duration.
func (c *Config) DownloadPollInterval() time.Duration {
	return time.Duration(c.Downloader.PollIntervalSec) * time.Second
}

// TranscribePollInterval returns the transcription worker poll interval as a duration.
func (c *Config) TranscribePollInterval() time.Duration {
	return time.Duration(c.Transcription.PollIntervalSec) * time.Second
}

// RefreshInterval returns the discovery refresh interval; zero disables
// automatic refresh.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Downloader.RefreshIntervalMin) * time.Minute
}
