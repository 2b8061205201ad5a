package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/eliza/internal/engine"
	"github.com/rcliao/eliza/internal/script"
)

func TestWatchReloadsScript(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doctor.txt")
	if err := os.WriteFile(path, []byte(testScript), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newTestServer(t)
	before := s.Engine()
	load := func() (*engine.Engine, error) {
		rules, err := script.Load(path)
		if err != nil {
			return nil, err
		}
		return engine.New(rules, engine.DefaultOptions(), nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, path, load, 20*time.Millisecond) }()

	changed := testScript + "key: extra\n  decomp: *\n    reasmb: Extra.\n"
	deadline := time.Now().Add(5 * time.Second)
	for s.Engine() == before && time.Now().Before(deadline) {
		os.WriteFile(path, []byte(changed), 0o644)
		time.Sleep(100 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}

	if s.Engine() == before {
		t.Fatal("expected the script to be reloaded")
	}
	if s.Engine().Rules().Key("extra") == nil {
		t.Error("reloaded rules missing the new key")
	}
}
