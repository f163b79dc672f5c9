package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"votetally/internal/domain/option"
	"votetally/internal/repository/sqlite"
)

func TestNewLoggerLevels(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		l := newLogger(in)
		if !l.Enabled(context.Background(), want) {
			t.Fatalf("%q: expected level %s enabled", in, want)
		}
		if want > slog.LevelDebug && l.Enabled(context.Background(), want-1) {
			t.Fatalf("%q: expected level below %s disabled", in, want)
		}
	}
}

func TestFormatTally(t *testing.T) {
	got := formatTally([]option.Count{{Text: "Cats", Votes: 2}, {Text: "Dogs", Votes: 0}})
	if !strings.HasSuffix(got, " Cats=2 Dogs=0") {
		t.Fatalf("unexpected line %q", got)
	}
	if !strings.HasSuffix(formatTally(nil), "(no options)") {
		t.Fatalf("expected empty marker")
	}
}

func TestBackupsCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("VOTES_CONFIG", "")

	store := sqlite.New(filepath.Join(dataDir, "votes.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	backup, err := store.Reset(context.Background())
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	store.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"backups"})
	t.Cleanup(func() {
		rootCmd.SetOut(os.Stdout)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), filepath.Base(backup)) {
		t.Fatalf("expected %s in output, got %q", filepath.Base(backup), out.String())
	}
}
