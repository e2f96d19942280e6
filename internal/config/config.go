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

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "montage.toml"

// LLM contains the OpenRouter connection settings.
type LLM struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	AllowedHosts   []string `toml:"allowed_hosts"`
	Model          string   `toml:"model"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RetryAttempts  int      `toml:"retry_attempts"`
}

// Media names the codec tools and the base dir for assembly temporaries.
type Media struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	TempDir string `toml:"temp_dir"`
}

type Whisper struct {
	Bin   string `toml:"bin"`
	Model string `toml:"model"`
}

// Ranges controls how model answers become cut ranges.
type Ranges struct {
	Strict   bool `toml:"strict"`
	Fallback bool `toml:"fallback"`
}

type Server struct {
	Bind      string `toml:"bind"`
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
	CacheDir  string `toml:"cache_dir"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for montage.
type Config struct {
	LLM     LLM     `toml:"llm"`
	Media   Media   `toml:"media"`
	Whisper Whisper `toml:"whisper"`
	Ranges  Ranges  `toml:"ranges"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLM{
			BaseURL:        "https://openrouter.ai",
			Model:          "anthropic/claude-3.5-sonnet",
			TimeoutSeconds: 90,
			RetryAttempts:  3,
		},
		Media: Media{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Whisper: Whisper{
			Bin:   ".cache/bin/whisper.cpp",
			Model: ".cache/models/ggml-base.bin",
		},
		Server: Server{
			Bind:      "127.0.0.1:8000",
			UploadDir: ".cache/uploads",
			OutputDir: "out",
			CacheDir:  ".cache",
		},
		Logging: Logging{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads path (or montage.toml when path is empty), then .env, then the
// environment. The returned string is the resolved config path and the bool
// reports whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithEnvFile(path, ".env")
}

// LoadWithEnvFile is Load with an explicit dotenv file.
func LoadWithEnvFile(path, envFile string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already present in the environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, "", false, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func (c *Config) applyEnv() error {
	setString(&c.LLM.APIKey, "OPENROUTER_API_KEY")
	setString(&c.LLM.Model, "OPENROUTER_MODEL")
	setString(&c.LLM.BaseURL, "OPENROUTER_BASE_URL")
	if v, ok := lookup("OPENROUTER_ALLOWED_HOSTS"); ok {
		c.LLM.AllowedHosts = splitList(v)
	}
	setString(&c.Media.TempDir, "MONTAGE_TEMP_DIR")
	setString(&c.Logging.Level, "MONTAGE_LOG_LEVEL")
	setString(&c.Logging.Format, "MONTAGE_LOG_FORMAT")
	setString(&c.Server.Bind, "MONTAGE_BIND")
	setString(&c.Whisper.Model, "MONTAGE_WHISPER_MODEL")
	if v, ok := lookup("MONTAGE_FALLBACK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MONTAGE_FALLBACK: %w", err)
		}
		c.Ranges.Fallback = b
	}
	return nil
}

// RequestTimeout is the per-request model timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// AIAvailable reports whether a model key is configured.
func (c *Config) AIAvailable() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", false, fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return abs, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config %s is a directory", abs)
	}
	return abs, true, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
