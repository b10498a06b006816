package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jackzampolin/adoread/internal/home"
	"github.com/jackzampolin/adoread/internal/providers"
	"github.com/jackzampolin/adoread/internal/server/endpoints"
	"github.com/jackzampolin/adoread/internal/testutil"
)

func TestServer_FullLifecycle(t *testing.T) {
	cfg := testutil.NewServerConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	homeDir, err := home.New(cfg.HomeDir)
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	srv, err := New(Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Home:     homeDir,
		Registry: testutil.MockRegistry(providers.NewMockClient()),
		Logger:   cfg.Logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Start server in background
	serverErr := make(chan error, 1)
	serverCtx, serverCancel := context.WithCancel(ctx)
	go func() {
		serverErr <- srv.Start(serverCtx)
	}()

	if err := testutil.WaitForServer(cfg.URL(), 10*time.Second); err != nil {
		serverCancel()
		t.Fatalf("server did not start: %v", err)
	}

	t.Run("ready_endpoint", func(t *testing.T) {
		resp, err := http.Get(cfg.URL() + "/ready")
		if err != nil {
			t.Fatalf("ready check failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("ready status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var health endpoints.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if health.Provider != "ok" {
			t.Errorf("health.Provider = %q, want %q", health.Provider, "ok")
		}
	})

	t.Run("status_endpoint", func(t *testing.T) {
		var status endpoints.StatusResponse
		resp, err := http.Get(cfg.URL() + "/status")
		if err != nil {
			t.Fatalf("status check failed: %v", err)
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if status.Server != "running" {
			t.Errorf("status.Server = %q, want %q", status.Server, "running")
		}
		if status.Home != cfg.HomeDir {
			t.Errorf("status.Home = %q, want %q", status.Home, cfg.HomeDir)
		}
	})

	t.Run("is_running", func(t *testing.T) {
		if !srv.IsRunning() {
			t.Error("IsRunning() = false, want true")
		}
	})

	t.Run("second_start_fails", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("Start() on a running server should fail")
		}
	})

	serverCancel()
	if err := testutil.WaitForShutdown(serverErr, 10*time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	t.Run("not_running_after_shutdown", func(t *testing.T) {
		if srv.IsRunning() {
			t.Error("IsRunning() = true after shutdown, want false")
		}
	})

	t.Run("start_after_close_fails", func(t *testing.T) {
		if err := srv.Start(ctx); err == nil {
			t.Error("Start() after shutdown should fail")
		}
	})
}

func TestServer_PortInUse(t *testing.T) {
	cfg := testutil.NewServerConfig(t)

	first, err := New(Config{Host: cfg.Host, Port: cfg.Port, DBPath: cfg.DBPath, Logger: cfg.Logger})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- first.Start(ctx) }()
	starter := testutil.StartServer{Cancel: cancel, Done: done}
	t.Cleanup(starter.Stop)

	if err := testutil.WaitForServer(cfg.URL(), 10*time.Second); err != nil {
		t.Fatal(err)
	}

	second, err := New(Config{Host: cfg.Host, Port: cfg.Port, DBPath: t.TempDir() + "/other.db", Logger: cfg.Logger})
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); err == nil {
		t.Error("Start() on a used port should fail")
	}
}
