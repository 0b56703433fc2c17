// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/lumenv/internal/adapters/cas"
	_ "go.trai.ch/lumenv/internal/adapters/config"
	_ "go.trai.ch/lumenv/internal/adapters/docker"
	_ "go.trai.ch/lumenv/internal/adapters/index"
	_ "go.trai.ch/lumenv/internal/adapters/local"
	_ "go.trai.ch/lumenv/internal/adapters/logger"
	_ "go.trai.ch/lumenv/internal/adapters/shell"
	_ "go.trai.ch/lumenv/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/lumenv/internal/app"
	_ "go.trai.ch/lumenv/internal/engine/resolver"
)
