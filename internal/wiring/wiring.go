// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/texmk/internal/adapters/config"
	_ "go.trai.ch/texmk/internal/adapters/fs"
	_ "go.trai.ch/texmk/internal/adapters/logger"
	_ "go.trai.ch/texmk/internal/adapters/shell"
	_ "go.trai.ch/texmk/internal/adapters/status"
	// Register app nodes.
	_ "go.trai.ch/texmk/internal/app"
)
