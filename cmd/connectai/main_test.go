package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/netlinkvoice/connectai/pkg/bridge/agent"
	"github.com/netlinkvoice/connectai/pkg/bridge/config"
)

func TestRunMainReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, bridgeDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		newRuntime: func(context.Context, string, *slog.Logger) (*agent.GeminiRuntime, error) {
			t.Fatalf("newRuntime should not be called when config load fails")
			return nil, nil
		},
		signalNotify: func(chan<- os.Signal, ...os.Signal) {},
		signalStop:   func(chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode = %d, want 1", exitCode)
	}
	if stderr.String() == "" {
		t.Fatalf("expected stderr output for startup error")
	}
}

func TestRunMainReturnsNonZeroWhenRuntimeFails(t *testing.T) {
	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, bridgeDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{GeminiAPIKey: "k", Addr: ":0"}, nil
		},
		newRuntime: func(context.Context, string, *slog.Logger) (*agent.GeminiRuntime, error) {
			return nil, errors.New("no upstream")
		},
		signalNotify: func(chan<- os.Signal, ...os.Signal) {},
		signalStop:   func(chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode = %d, want 1", exitCode)
	}
}

func TestPingerKeepsNilNil(t *testing.T) {
	if p := pinger(nil); p != nil {
		t.Fatalf("pinger(nil) = %v, want nil interface", p)
	}
}
