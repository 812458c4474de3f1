package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"replaylog/internal/server"
	"replaylog/internal/session"
	"replaylog/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	dbPath := os.Getenv("REPLAYLOG_DB")
	if dbPath == "" {
		dbPath = defaultDBPath(logger)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logger.Error("create data directory", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		logger.Error("open event store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	address := os.Getenv("REPLAYD_ADDRESS")
	if address == "" {
		address = "127.0.0.1:8484"
	}

	assembler := session.NewAssembler(st, logger)
	srv := server.NewServer(st, assembler, address, logger)
	if err := srv.Start(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func defaultDBPath(logger *slog.Logger) string {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		logger.Error("determine home directory", "error", err)
		os.Exit(1)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "ReplayLog", "events.db")
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "ReplayLog", "events.db")
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "replaylog", "events.db")
	}
}
