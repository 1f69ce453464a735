package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/lucasjlepore/gpx-analyzer/config"
	"github.com/lucasjlepore/gpx-analyzer/server"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional config file (yaml|json|toml)")
		listen     = flag.String("listen", "", "Listen address, overrides the config value")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [--config gpxa.yaml] [--listen :8080]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gpx_server failed: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		settings.Listen = *listen
	}

	logger := settings.Logger(&logrus.JSONFormatter{})
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(settings.SessionOptions(), settings.GroupBy, settings.MaxUploadMB, logger)
	logger.WithField("listen", settings.Listen).Info("gpx analyzer api listening")
	if err := srv.Run(settings.Listen); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
