// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/mcunha/tunelink/internal/sources"
)

// MockSource is a scripted test double for [sources.Source]. Each Search
// call pops the next reply; once the script is exhausted every further call
// reports a miss.
type MockSource struct {
	mu      sync.Mutex
	name    string
	offline bool
	replies []MockReply
	Calls   []sources.Query
}

// MockReply is one scripted Search outcome.
type MockReply struct {
	URL string
	Err error
}

func NewMockSource(name string, replies ...MockReply) *MockSource {
	return &MockSource{name: name, replies: replies}
}

// NewOfflineSource reports unavailable and fails any Search reaching it.
func NewOfflineSource(name string) *MockSource {
	return &MockSource{name: name, offline: true}
}

func (m *MockSource) Search(ctx context.Context, q sources.Query) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, q)
	if m.offline {
		return "", errors.New("source offline")
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next.URL, next.Err
}

func (m *MockSource) Name() string { return m.name }

func (m *MockSource) Available() bool { return !m.offline }

// CallCount returns how many Search calls the source has served.
func (m *MockSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
