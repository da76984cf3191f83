// strata-tail is an interactive tool for watching a Strata server's
// realtime stream: connect, subscribe to topics, and print incoming
// frames as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strata-base/strata-go/pkg/auth"
	"github.com/strata-base/strata-go/pkg/config"
	"github.com/strata-base/strata-go/pkg/log"
	"github.com/strata-base/strata-go/pkg/realtime"
	"github.com/strata-base/strata-go/pkg/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	serverURL := flag.String("server", "", "Server base URL (overrides config)")
	token := flag.String("token", "", "Bearer token (overrides config)")
	logFile := flag.String("log", "", "CBOR event capture file (overrides config)")
	flag.Parse()

	if err := run(*configPath, *serverURL, *token, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, serverURL, token, logFile string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if token != "" {
		cfg.Auth.Token = token
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if cfg.Server.URL == "" {
		return fmt.Errorf("no server URL; pass -server or -config")
	}

	var logger log.Logger = log.NoopLogger{}
	if cfg.Log.File != "" {
		fl, err := log.NewFileLogger(cfg.Log.File)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer fl.Close()
		logger = fl
	}

	store := auth.NewStore()
	if cfg.Auth.Token != "" {
		store.Save(cfg.Auth.Token)
	}

	tc, err := transport.NewClient(transport.Config{
		BaseURL:        cfg.Server.URL,
		Tokens:         store,
		Logger:         logger,
		RequestTimeout: cfg.Server.Timeout,
	})
	if err != nil {
		return err
	}

	rc, err := realtime.NewClient(realtime.Config{
		Transport:        tc,
		StreamPath:       cfg.Realtime.StreamPath,
		Logger:           logger,
		HandshakeTimeout: cfg.Realtime.HandshakeTimeout,
		Reconnect: realtime.ReconnectConfig{
			Interval:    cfg.Realtime.Reconnect.Interval,
			MaxAttempts: cfg.Realtime.Reconnect.MaxAttempts,
		},
	})
	if err != nil {
		return err
	}
	defer rc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	tail, err := newTail(rc, cfg.Server.URL)
	if err != nil {
		return err
	}

	rc.OnDisconnect(func(orphaned []string) {
		fmt.Fprintf(tail.Stdout(), "\nDisconnected; gave up reconnecting. Orphaned topics: %v\n", orphaned)
	})

	tail.Run(ctx, cancel)

	// Give a clean shutdown a moment before the process exits
	time.Sleep(50 * time.Millisecond)
	return nil
}
