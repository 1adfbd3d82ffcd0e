// Command transcriber-reaper runs one cache retention sweep and exits.
// Use it from cron when no API process runs the scheduled reaper.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kbukum/transcriber/bootstrap"
	"github.com/kbukum/transcriber/config"
	"github.com/kbukum/transcriber/logger"
	"github.com/kbukum/transcriber/service"
	"github.com/kbukum/transcriber/version"
)

const processName = "transcriber-reaper"

func main() {
	configFile := flag.String("config", "", "path to config.yml (searched for when empty)")
	envFile := flag.String("env", "", "path to a .env file (searched for when empty)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetVersionInfo().String())
		return
	}

	cfg := &service.Config{}
	if err := config.LoadConfig(processName, cfg,
		config.WithConfigFile(*configFile),
		config.WithEnvFile(*envFile),
	); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Name == "" {
		cfg.Name = processName
	}
	if cfg.Version == "" {
		cfg.Version = version.GetShortVersion()
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	sweep, err := service.ConfigureReaper(app)
	if err != nil {
		fail(app.Logger, err)
	}
	if err := app.RunTask(context.Background(), sweep); err != nil {
		fail(app.Logger, err)
	}
}

func fail(log *logger.Logger, err error) {
	log.Error("transcriber-reaper failed", logger.Fields(logger.FieldError, err.Error()))
	os.Exit(1)
}
