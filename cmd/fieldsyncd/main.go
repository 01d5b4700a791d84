// fieldsyncd is the standalone daemon binary. It is a thin wrapper around
// the shared daemon runtime; `fieldsync daemon run` starts the same loop.
package main

import (
	"context"
	"flag"
	"log"

	"fieldsync/internal/config"
	"fieldsync/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevel}); err != nil {
		log.Fatalf("fieldsyncd: %v", err)
	}
}
