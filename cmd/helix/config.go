package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full helix configuration tree.
type Config struct {
	Ingest  IngestConfig  `toml:"ingest"`
	Output  OutputConfig  `toml:"output"`
	Metrics MetricsConfig `toml:"metrics"`
}

type IngestConfig struct {
	// URL of the multivariant playlist. http(s) URLs use the HTTP
	// source; anything else is treated as a local path.
	URL string `toml:"url"`

	// Elementary stream buffer sizes in bytes. Each is split across
	// the double-buffered segment slots.
	VideoBufferSize int `toml:"videoBufferSize"`
	AudioBufferSize int `toml:"audioBufferSize"`
}

type OutputConfig struct {
	// Directory receiving the framed video.h264 and audio.aac files.
	Dir string `toml:"dir"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Parse reads the first existing config file from paths on top of the
// built-in defaults. No path existing is not an error; the defaults
// stand.
func Parse(paths ...string) (*Config, error) {
	config := Config{
		Ingest: IngestConfig{
			VideoBufferSize: 4 << 20,
			AudioBufferSize: 1 << 20,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9101",
		},
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		break
	}

	if config.Ingest.VideoBufferSize <= 0 || config.Ingest.AudioBufferSize <= 0 {
		return nil, fmt.Errorf("buffer sizes must be positive")
	}
	return &config, nil
}
