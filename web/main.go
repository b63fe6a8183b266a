package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/df07/go-ppm-raytracer/pkg/config"
	"github.com/df07/go-ppm-raytracer/web/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Parse command line flags
	addr := flag.String("addr", cfg.Addr, "Address to serve on")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	flag.Parse()

	cfg.Addr = *addr
	cfg.LogLevel = *logLevel
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create and start web server
	webServer := server.NewServer(cfg.Addr, logger)

	logger.Info("PPM Raytracer Web Server", "addr", cfg.Addr)
	if err := webServer.Start(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
