package audio

import (
	"context"
	"sync"
)

// MockPlayer records Play calls without touching an audio device.
type MockPlayer struct {
	mu    sync.Mutex
	calls []MockPlayback
	err   error
}

// MockPlayback captures the arguments of one Play call.
type MockPlayback struct {
	Bytes      int
	SampleRate int
	Channels   int
}

// NewMockPlayer creates a mock player.
func NewMockPlayer() *MockPlayer { return &MockPlayer{} }

// FailWith makes subsequent Play calls return err.
func (m *MockPlayer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Play implements Player.
func (m *MockPlayer) Play(ctx context.Context, samples []byte, sampleRate, channels int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, MockPlayback{
		Bytes:      len(samples),
		SampleRate: sampleRate,
		Channels:   channels,
	})
	return nil
}

// Calls returns the recorded playbacks.
func (m *MockPlayer) Calls() []MockPlayback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockPlayback, len(m.calls))
	copy(out, m.calls)
	return out
}
