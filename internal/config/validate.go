package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable by every command.
func (c *Config) Validate() error {
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.RetryAttempts <= 0 {
		return errors.New("llm.retry_attempts must be positive")
	}
	if strings.TrimSpace(c.Media.FFmpeg) == "" || strings.TrimSpace(c.Media.FFprobe) == "" {
		return errors.New("media.ffmpeg and media.ffprobe must be set")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "auto", "text", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, text or json, got %q", c.Logging.Format)
	}
	return nil
}

// ValidateTranscription checks the settings needed to transcribe media.
func (c *Config) ValidateTranscription() error {
	if strings.TrimSpace(c.Whisper.Model) == "" {
		return errors.New("whisper.model is required (set MONTAGE_WHISPER_MODEL or edit montage.toml)")
	}
	return nil
}

// ValidateServer checks the settings needed by the HTTP server.
func (c *Config) ValidateServer() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind must be set")
	}
	if strings.TrimSpace(c.Server.UploadDir) == "" || strings.TrimSpace(c.Server.OutputDir) == "" {
		return errors.New("server.upload_dir and server.output_dir must be set")
	}
	return c.ValidateTranscription()
}
