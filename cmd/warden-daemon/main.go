// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

// Warden-daemon is the host-side trust engine. It admits application
// images (credential verification, identity assignment, registration),
// answers syscall filter queries, applies the fault policy, and keeps
// the decision journal and image archive. Operator tooling talks to it
// over a Unix socket using CBOR request-response IPC.
//
// On startup:
//  1. Loads warden.yaml (from --config or WARDEN_CONFIG).
//  2. Creates the state, socket, store, and journal directories.
//  3. Loads verification keys and syscall filter rules.
//  4. Opens the image store and the decision journal.
//  5. Assembles the platform and serves IPC until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/warden-project/warden/lib/appstore"
	"github.com/warden-project/warden/lib/config"
	"github.com/warden-project/warden/lib/credential"
	"github.com/warden-project/warden/lib/eventlog"
	"github.com/warden-project/warden/lib/faultpolicy"
	"github.com/warden-project/warden/lib/ipc"
	"github.com/warden-project/warden/lib/keyring"
	"github.com/warden-project/warden/lib/platform"
	"github.com/warden-project/warden/lib/secret"
	"github.com/warden-project/warden/lib/syscallfilter"
	"github.com/warden-project/warden/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "path to warden.yaml (overrides WARDEN_CONFIG)")
	flag.StringVar(&socketPath, "socket", "", "Unix socket to serve IPC on (overrides paths.socket)")
	flag.StringVar(&logLevel, "log-level", "", "minimum log level: debug, info, warn, error (overrides log.level)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("warden-daemon %s\n", version.Info())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if socketPath != "" {
		cfg.Paths.Socket = socketPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := buildLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsurePaths(); err != nil {
		return fmt.Errorf("creating state directories: %w", err)
	}

	verifiers := buildVerifiers(cfg.Admission.Verifiers)
	keys, err := keyring.LoadVerifySet(cfg.Admission.RSAPublicKey)
	if err != nil {
		return fmt.Errorf("loading verification keys: %w", err)
	}
	if cfg.Admission.RSAPublicKey != "" {
		logger.Info("rsa2048 verification key loaded", "path", cfg.Admission.RSAPublicKey)
	}

	var filter syscallfilter.Policy = syscallfilter.AllowAll{}
	if cfg.Filter.Rules != "" {
		protected, err := syscallfilter.LoadRules(cfg.Filter.Rules)
		if err != nil {
			return fmt.Errorf("loading filter rules: %w", err)
		}
		filter = protected
		logger.Info("filter rules loaded", "path", cfg.Filter.Rules)
	}

	var store *appstore.Store
	if cfg.Store.Enabled {
		compression, err := appstore.ParseCompressionTag(cfg.Store.Compression)
		if err != nil {
			return fmt.Errorf("store compression: %w", err)
		}
		var storeKey *secret.Buffer
		if cfg.Store.EncryptionKey != "" {
			storeKey, err = secret.ReadFromPath(cfg.Store.EncryptionKey)
			if err != nil {
				return fmt.Errorf("reading store encryption key: %w", err)
			}
			// The store borrows the key buffer for its lifetime; zero
			// it on the way out, after the platform has drained.
			defer storeKey.Close()
		}
		store, err = appstore.Open(cfg.Store.Path, appstore.Options{
			Compression: compression,
			Key:         storeKey,
			Logger:      logger,
		})
		if err != nil {
			return fmt.Errorf("opening image store: %w", err)
		}
		logger.Info("image store open",
			"path", cfg.Store.Path,
			"compression", compression.String(),
			"encrypted", storeKey != nil,
		)
	}

	var journal *eventlog.Log
	if cfg.Journal.Enabled {
		journal, err = eventlog.Open(cfg.Journal.Path, eventlog.Options{
			Logger:        logger,
			RingSize:      cfg.Journal.RingSize,
			QueueDepth:    cfg.Journal.QueueDepth,
			FlushInterval: cfg.FlushInterval(),
		})
		if err != nil {
			return fmt.Errorf("opening decision journal: %w", err)
		}
		defer journal.Close()
		logger.Info("decision journal open", "path", cfg.Journal.Path, "seq", journal.Seq())
	}

	engine, err := platform.New(platform.Options{
		Filter:          filter,
		Fault:           buildFaultPolicy(cfg.Fault),
		Verifiers:       verifiers,
		Keys:            keys,
		AllowUnverified: !cfg.Admission.RequireCredentials,
		QueueDepth:      cfg.Admission.QueueDepth,
		Store:           store,
		Journal:         journal,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("assembling platform: %w", err)
	}
	defer engine.Close()

	logger.Info("warden daemon starting",
		"version", version.Info(),
		"socket", cfg.Paths.Socket,
		"require_credentials", cfg.Admission.RequireCredentials,
		"fault_policy", cfg.Fault.Policy,
	)

	server := ipc.NewServer(cfg.Paths.Socket, engine, version.Info(), logger)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serving IPC: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// buildLogger constructs the daemon logger from the validated log
// configuration.
func buildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// buildVerifiers maps configured verifier names to implementations.
// Validate vets the names, so an unknown one here is a programming
// error and is skipped rather than failing startup.
func buildVerifiers(names []string) []credential.Verifier {
	var verifiers []credential.Verifier
	for _, name := range names {
		switch name {
		case "sha256":
			verifiers = append(verifiers, credential.Sha256Verifier{})
		case "rsa2048":
			verifiers = append(verifiers, credential.Rsa2048Verifier{})
		}
	}
	return verifiers
}

// buildFaultPolicy maps the validated fault configuration to a policy.
func buildFaultPolicy(cfg config.FaultConfig) faultpolicy.Policy {
	switch cfg.Policy {
	case "always-restart":
		return faultpolicy.AlwaysRestart{}
	case "panic":
		return faultpolicy.Panic{}
	default:
		return faultpolicy.Threshold{Limit: cfg.Limit}
	}
}
