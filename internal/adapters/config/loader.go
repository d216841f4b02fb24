// Package config provides the configuration loader for texmk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/texmk/internal/core/domain"
	"go.trai.ch/texmk/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load walks from dir towards the filesystem root and applies the first
// texmk.yaml it finds on top of the defaults. Documents without a
// configuration file build with the defaults alone.
func (l *Loader) Load(dir string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()

	configPath, found := findConfiguration(dir)
	if !found {
		return cfg, nil
	}

	var file File
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, err
	}
	if err := apply(cfg, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	l.Logger.Info(fmt.Sprintf("using configuration %s", configPath))
	return cfg, nil
}

func findConfiguration(dir string) (string, bool) {
	currentDir := dir
	for {
		configPath := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			return "", false
		}
		currentDir = parentDir
	}
}

func apply(cfg *domain.Config, file *File) error {
	if file.Format != "" {
		format, err := domain.ParseFormat(file.Format)
		if err != nil {
			return err
		}
		cfg.Format = format
	}

	applyTool(&cfg.Compiler, file.Compiler)
	applyTool(&cfg.Bibliography, file.Bibliography)
	applyTool(&cfg.Index, file.Index)

	if file.MaxPasses != nil {
		if *file.MaxPasses < 1 {
			return zerr.With(domain.ErrConfigParseFailed, "maxPasses", *file.MaxPasses)
		}
		cfg.MaxPasses = *file.MaxPasses
	}
	if file.MaxAuxRuns != nil {
		if *file.MaxAuxRuns < 0 {
			return zerr.With(domain.ErrConfigParseFailed, "maxAuxRuns", *file.MaxAuxRuns)
		}
		cfg.MaxAuxRuns = *file.MaxAuxRuns
	}

	if file.Watch.Debounce != "" {
		debounce, err := time.ParseDuration(file.Watch.Debounce)
		if err != nil {
			return zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "debounce", file.Watch.Debounce)
		}
		cfg.Debounce = debounce
	}

	for _, m := range file.Markers {
		signal, err := domain.ParseSignal(m.Signal)
		if err != nil {
			return err
		}
		cfg.ExtraMarkers = append(cfg.ExtraMarkers, domain.MarkerRule{
			Pattern: m.Pattern,
			Signal:  signal,
		})
	}

	return nil
}

func applyTool(spec *domain.ToolSpec, dto ToolDTO) {
	if dto.Command != "" {
		spec.Command = dto.Command
	}
	if dto.Flags != nil {
		spec.Flags = dto.Flags
	}
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is validated by caller
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "path", configPath)
	}

	if parseErr := yaml.Unmarshal(configFile, target); parseErr != nil {
		return zerr.With(errors.Join(domain.ErrConfigParseFailed, parseErr), "path", configPath)
	}

	return nil
}
