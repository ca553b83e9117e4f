package main

import (
	"github.com/tapestry-analytics/tapestry/internal/server"
	"github.com/tapestry-analytics/tapestry/internal/util"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.New(console.Params{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
