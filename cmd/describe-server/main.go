package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/apex/log"

	imagedescriber "github.com/menta2k/image-describer"
	"github.com/menta2k/image-describer/internal/config"
	"github.com/menta2k/image-describer/internal/server"
)

func main() {
	var useAPIKey, verbose bool
	var port string

	flag.BoolVar(&useAPIKey, "use-api-key", false, "authenticate with an API key instead of managed identity")
	flag.StringVar(&port, "port", "", "listen port (overrides SERVER_PORT)")
	flag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Load()
	if port != "" {
		cfg.ServerPort = port
	}

	analyzer, err := imagedescriber.NewAzure(cfg, useAPIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	srv := server.New(analyzer.Describer, cfg, analyzer.ServiceInfo())

	log.Infof("starting describe server on :%s", cfg.ServerPort)
	if err := srv.Router().Run(":" + cfg.ServerPort); err != nil {
		log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
