//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leonardotrapani/mockroom/internal/config"
	"github.com/leonardotrapani/mockroom/internal/grading"
	"github.com/leonardotrapani/mockroom/internal/negotiator"
	"github.com/leonardotrapani/mockroom/internal/server"
)

const testTimeout = 45 * time.Second

// loadTestSettings resolves server settings from the environment and skips
// when no Azure resource is configured.
func loadTestSettings(t *testing.T) server.Settings {
	t.Helper()
	cfg := config.DefaultConfig()
	if err := cfg.ValidateServer(); err != nil {
		t.Skipf("azure not configured: %v", err)
	}
	return cfg.ToServerSettings()
}

func startTestServer(t *testing.T, s server.Settings) *httptest.Server {
	t.Helper()
	srv := server.New(server.Options{Config: server.StaticConfig(s)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestSessionMint(t *testing.T) {
	s := loadTestSettings(t)
	ts := startTestServer(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	n := negotiator.New(negotiator.Config{SignalingURL: ts.URL})
	cred, err := n.RequestCredential(ctx)
	if err != nil {
		t.Fatalf("RequestCredential: %v", err)
	}
	if cred == "" {
		t.Fatal("empty ephemeral credential")
	}
}

func TestGradeAnswer(t *testing.T) {
	s := loadTestSettings(t)
	if s.GradingDeployment == "" {
		t.Skip("grading deployment not configured")
	}
	ts := startTestServer(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	fb, err := grading.NewClient(ts.URL).Grade(ctx, "I would shard the users table by tenant id and keep a lookup service for cross-tenant queries.")
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if fb.Score < 0 || fb.Score > 100 {
		t.Errorf("score out of range: %d", fb.Score)
	}
	if fb.Feedback == "" {
		t.Error("empty feedback")
	}
}

func TestGradeRejectsEmptyAnswer(t *testing.T) {
	s := loadTestSettings(t)
	ts := startTestServer(t, s)

	body, _ := json.Marshal(map[string]string{"answer": ""})
	resp, err := http.Post(ts.URL+"/grade", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
