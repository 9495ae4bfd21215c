package kernel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigaika/mrtos/bsp"
	"github.com/gigaika/mrtos/kernel"
	"github.com/gigaika/mrtos/simbsp"
)

// TestIntegration_TwoTasksAlternateViaSimbsp exercises the full stack —
// real goroutines, a real simulated tick, a real trampoline — rather
// than the package's own synchronous, single-goroutine unit tests. It
// stands in for the board-level smoke test a real target's CI would run
// against actual silicon.
func TestIntegration_TwoTasksAlternateViaSimbsp(t *testing.T) {
	provider := simbsp.New(time.Millisecond)

	var mu stubMu
	var trace []string

	k, err := kernel.New(provider, func() {
		for {
			time.Sleep(time.Millisecond)
		}
	}, make([]bsp.StackWord, 8), kernel.WithTickPeriod(1), kernel.WithTimeSlice(2))
	require.NoError(t, err)

	done := make(chan struct{})

	_, err = k.CreateTask(func() {
		for i := 0; i < 3; i++ {
			mu.Lock()
			trace = append(trace, "A")
			mu.Unlock()
			k.Sleep(5)
		}
		close(done)
		for {
			k.Sleep(5)
		}
	}, make([]bsp.StackWord, 8), 5, "A")
	require.NoError(t, err)

	k.Launch()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task A did not complete in time")
	}

	provider.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"A", "A", "A"}, trace)
}

// stubMu avoids importing sync twice under two names in such a short
// file; it's a plain mutex.
type stubMu struct{ locked chan struct{} }

func (m *stubMu) Lock() {
	if m.locked == nil {
		m.locked = make(chan struct{}, 1)
	}
	m.locked <- struct{}{}
}

func (m *stubMu) Unlock() {
	<-m.locked
}
