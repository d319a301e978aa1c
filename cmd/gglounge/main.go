package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gglounge/internal/clock"
	"github.com/smallbiznis/gglounge/internal/config"
	"github.com/smallbiznis/gglounge/internal/migration"
	"github.com/smallbiznis/gglounge/internal/observability"
	"github.com/smallbiznis/gglounge/internal/scheduler"
	"github.com/smallbiznis/gglounge/internal/server"
	"github.com/smallbiznis/gglounge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Lounge domains and the HTTP surface
		server.Module,

		// Background jobs
		scheduler.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the ID node from SNOWFLAKE_NODE so replicas never collide.
func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
