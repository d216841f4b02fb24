package ports

import "go.trai.ch/texmk/internal/core/domain"

// ConfigLoader resolves the effective configuration for a directory.
//
//go:generate mockgen -destination=mocks/mock_config.go -package=mocks go.trai.ch/texmk/internal/core/ports ConfigLoader
type ConfigLoader interface {
	// Load finds the nearest configuration file at or above dir and returns
	// the resulting configuration. When no file exists the defaults apply.
	Load(dir string) (*domain.Config, error)
}
