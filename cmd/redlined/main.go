// Command redlined runs the redline daemon: the HTTP backend that stages
// pages, relays email and records submissions.
package main

import (
	"context"
	"flag"
	"log"

	"redline/internal/config"
	"redline/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override logging.level")
	development := flag.Bool("dev", false, "Include source locations in log output")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    *logLevel,
		Development: *development,
	}); err != nil {
		log.Fatalf("redlined: %v", err)
	}
}
