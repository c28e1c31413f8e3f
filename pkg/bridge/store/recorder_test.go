package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/netlinkvoice/connectai/pkg/bridge/agent"
)

type memStore struct {
	mu           sync.Mutex
	interactions map[string]string // externalID -> outcome
	messages     []string
	failNext     bool
}

func newMemStore() *memStore {
	return &memStore{interactions: map[string]string{}}
}

func (m *memStore) ActiveAgentForDomain(context.Context, string) (*agent.Config, error) {
	return nil, nil
}

func (m *memStore) CreateInteraction(_ context.Context, externalID, _ string, _ int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("db down")
	}
	m.interactions[externalID] = ""
	return nil
}

func (m *memStore) EndInteraction(_ context.Context, externalID, outcome string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactions[externalID] = outcome
	return nil
}

func (m *memStore) InsertMessage(_ context.Context, _, role, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, role+":"+text)
	return nil
}

func TestRecorderWritesAsynchronously(t *testing.T) {
	ms := newMemStore()
	rec := NewRecorder(ms, nil, 1, 16, time.Second)

	rec.CreateInteraction("X1", "acme.example.com", 7, "15551230000")
	rec.InsertMessage("X1", "assistant", "hello")
	rec.EndInteraction("X1", "hangup")
	rec.Close()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if got := ms.interactions["X1"]; got != "hangup" {
		t.Fatalf("outcome=%q, want hangup", got)
	}
	if len(ms.messages) != 1 || ms.messages[0] != "assistant:hello" {
		t.Fatalf("messages=%v", ms.messages)
	}
}

func TestRecorderAbsorbsFailures(t *testing.T) {
	ms := newMemStore()
	ms.failNext = true
	rec := NewRecorder(ms, nil, 1, 16, time.Second)

	// The failing write must not affect subsequent writes.
	rec.CreateInteraction("A", "d", 0, "")
	rec.CreateInteraction("B", "d", 0, "")
	rec.Close()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.interactions["B"]; !ok {
		t.Fatalf("write after failure was lost")
	}
	if _, ok := ms.interactions["A"]; ok {
		t.Fatalf("failed write unexpectedly recorded")
	}
}
