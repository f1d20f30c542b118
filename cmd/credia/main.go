package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/credia/internal/cache"
	"github.com/smallbiznis/credia/internal/clock"
	"github.com/smallbiznis/credia/internal/config"
	"github.com/smallbiznis/credia/internal/ledger"
	"github.com/smallbiznis/credia/internal/loan"
	"github.com/smallbiznis/credia/internal/migration"
	"github.com/smallbiznis/credia/internal/observability"
	"github.com/smallbiznis/credia/internal/report"
	"github.com/smallbiznis/credia/internal/scheduler"
	"github.com/smallbiznis/credia/internal/server"
	"github.com/smallbiznis/credia/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		// Functional domains
		loan.Module,
		ledger.Module,
		report.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
