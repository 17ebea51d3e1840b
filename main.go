package main

import (
	"github.com/victorakor/mall-surveillance-system/cmd"
	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
)

// version and buildDate are injected at link time.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		logging.Fatal("Error loading configuration", "error", err)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("Command failed", "error", err)
	}
}
