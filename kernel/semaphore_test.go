package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asTask makes id the current running task for the duration of the next
// direct Kernel call. fakeBSP never suspends the caller (it has no
// Suspender), so Wait/Signal/Sleep return immediately to the test
// goroutine regardless of the task's resulting state, letting a single
// goroutine script a sequence of calls "as" different tasks in turn —
// exactly how the original C test suite drives OS_Wait/OS_Signal by
// hand against whichever TCB runPtr currently names.
func (k *Kernel) asTask(id TaskID) {
	k.mu.Lock()
	k.running = id
	k.mu.Unlock()
}

func TestSemaphore_SingleMutexPriorityInheritance(t *testing.T) {
	k, _ := newTestKernel()

	t1, err := k.CreateTask(func() {}, testStack(), 1, "T1")
	require.NoError(t, err)
	t2, err := k.CreateTask(func() {}, testStack(), 2, "T2")
	require.NoError(t, err)

	m := k.NewMutex()

	k.asTask(t2)
	k.Wait(m) // T2 acquires M uncontended

	assert.Equal(t, t2, m.owner)
	assert.Equal(t, int32(2), k.tasks[t2].priority)

	// T2 holds M; take it out of the ready list and mark it inactive, so
	// the priority donation below changes its priority field without any
	// list re-insertion.
	k.listRemove(&k.ready, t2)
	k.tasks[t2].state = StateInactive

	k.asTask(t1)
	k.Wait(m) // T1 blocks, inheritance raises T2 to priority 1

	assert.Equal(t, int32(1), k.tasks[t2].priority)
	assert.Equal(t, StateBlocked, k.tasks[t1].state)

	k.asTask(t2)
	k.Signal(m)

	assert.Equal(t, t1, m.owner)
	assert.Equal(t, StateReady, k.tasks[t1].state)
	assert.Equal(t, int32(2), k.tasks[t2].priority, "T2 priority must restore to base after releasing the grant")
}

func TestSemaphore_ChainedInheritanceAcrossFlagBlock(t *testing.T) {
	k, _ := newTestKernel()

	t1, err := k.CreateTask(func() {}, testStack(), 1, "T1")
	require.NoError(t, err)
	t2, err := k.CreateTask(func() {}, testStack(), 2, "T2")
	require.NoError(t, err)
	t3, err := k.CreateTask(func() {}, testStack(), 3, "T3")
	require.NoError(t, err)

	sem0 := k.NewFlag()
	m1 := k.NewMutex()
	m2 := k.NewMutex()

	k.asTask(t3)
	k.Wait(m1) // T3 owns M1
	k.listRemove(&k.ready, t3)
	k.Wait(sem0) // T3 blocks on the flag

	k.asTask(t2)
	k.Wait(m2) // T2 owns M2
	k.listRemove(&k.ready, t2)
	k.Wait(m1) // T2 blocks on M1, held by T3; T3 raised from 3 to 2

	assert.Equal(t, int32(2), k.tasks[t3].priority)

	k.asTask(t1)
	k.Wait(m2) // T1 blocks on M2, held by T2; chain: T2->1, T3->1

	assert.Equal(t, int32(1), k.tasks[t2].priority)
	assert.Equal(t, int32(1), k.tasks[t3].priority)

	k.asTask(t1) // an ISR or any context may signal a flag
	k.Signal(sem0)

	assert.Equal(t, StateReady, k.tasks[t3].state)
	assert.Equal(t, int32(1), k.tasks[t3].priority, "flags never carry inheritance bookkeeping")

	k.listRemove(&k.ready, t3)
	k.tasks[t3].state = StateInactive

	k.asTask(t3)
	k.Signal(m1)

	assert.Equal(t, int32(3), k.tasks[t3].priority, "T3 restores to base once its only grant is released")
}

func TestSemaphore_DeadlockDetected(t *testing.T) {
	k, _ := newTestKernel()

	var fatalErr error
	SetFatalHandler(func(err error) { fatalErr = err })
	defer SetFatalHandler(nil)

	t1, err := k.CreateTask(func() {}, testStack(), 1, "T1")
	require.NoError(t, err)
	t2, err := k.CreateTask(func() {}, testStack(), 2, "T2")
	require.NoError(t, err)

	ma := k.NewMutex()
	mb := k.NewMutex()

	k.asTask(t1)
	k.Wait(ma) // T1 owns A

	k.asTask(t2)
	k.Wait(mb) // T2 owns B

	k.listRemove(&k.ready, t1)
	k.tasks[t1].state = StateInactive
	k.listRemove(&k.ready, t2)
	k.tasks[t2].state = StateInactive

	k.asTask(t1)
	k.Wait(mb) // T1 blocks on B, owned by T2

	k.asTask(t2)
	k.Wait(ma) // T2 blocks on A, owned by T1, which is blocked on B owned by T2

	require.Error(t, fatalErr)
	var kerr *Error
	require.ErrorAs(t, fatalErr, &kerr)
	assert.Equal(t, ErrDeadlock, kerr.Code)
}
