package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertListSorted checks the ordering half of P2: ascending priority.
// FIFO order among equal priorities is not checked here.
func assertListSorted(t *testing.T, k *Kernel, l *taskList) {
	t.Helper()
	prev := int32(-1)
	cursor := l.head
	for cursor != NoTask {
		pri := k.tasks[cursor].priority
		assert.GreaterOrEqual(t, pri, prev)
		prev = pri
		cursor = k.tasks[cursor].next
	}
}

func TestInvariant_BoundaryCreateTaskCapacityExhausted(t *testing.T) {
	k, _ := newTestKernel(WithMaxUserTasks(2))

	_, err := k.CreateTask(func() {}, testStack(), 5, "a")
	require.NoError(t, err)
	_, err = k.CreateTask(func() {}, testStack(), 5, "b")
	require.NoError(t, err)

	_, err = k.CreateTask(func() {}, testStack(), 5, "c")
	require.Error(t, err)
	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, ErrCapacityExhausted, kerr.Code)
}

func TestInvariant_SleepZeroStillTraversesSleepList(t *testing.T) {
	k, _ := newTestKernel(WithTickPeriod(1))

	id, err := k.CreateTask(func() {}, testStack(), 5, "a")
	require.NoError(t, err)
	k.asTask(id)

	k.Sleep(0)

	assert.Equal(t, StateAsleep, k.tasks[id].state)
	assert.False(t, k.sleep.empty())

	k.Tick()
	assert.Equal(t, StateReady, k.tasks[id].state)
}

func TestInvariant_EmptyReadySelectsIdle(t *testing.T) {
	k, _ := newTestKernel()
	assert.Equal(t, k.idle, k.Schedule())
}

func TestInvariant_MutexWaitSignalRoundTrip(t *testing.T) {
	k, _ := newTestKernel()

	id, err := k.CreateTask(func() {}, testStack(), 5, "a")
	require.NoError(t, err)
	m := k.NewMutex()

	k.asTask(id)
	k.Wait(m)
	assert.Equal(t, id, m.owner)
	assert.Equal(t, int32(0), m.value)

	k.Signal(m)
	assert.Equal(t, NoTask, m.owner)
	assert.Equal(t, int32(1), m.value, "round trip restores initial value")
}

func TestInvariant_MutexSignalSaturatesAtOne(t *testing.T) {
	k, _ := newTestKernel()
	m := k.NewMutex()

	k.Signal(m)
	assert.Equal(t, int32(1), m.value)
	k.Signal(m)
	assert.Equal(t, int32(1), m.value)
}

func TestInvariant_ListsStaySortedAfterPriorityDonation(t *testing.T) {
	k, _ := newTestKernel()

	t1, err := k.CreateTask(func() {}, testStack(), 1, "T1")
	require.NoError(t, err)
	t2, err := k.CreateTask(func() {}, testStack(), 5, "T2")
	require.NoError(t, err)
	t3, err := k.CreateTask(func() {}, testStack(), 9, "T3")
	require.NoError(t, err)

	m := k.NewMutex()
	k.asTask(t2)
	k.Wait(m)
	k.listRemove(&k.ready, t2)
	k.tasks[t2].state = StateInactive

	k.asTask(t1)
	k.Wait(m) // donates priority 1 to T2

	assertListSorted(t, k, &k.ready)
	assertListSorted(t, k, &k.blocked)
	_ = t3
}

func TestInvariant_PriorityNeverExceedsBase(t *testing.T) {
	k, _ := newTestKernel()

	owner, err := k.CreateTask(func() {}, testStack(), 5, "owner")
	require.NoError(t, err)
	waiter, err := k.CreateTask(func() {}, testStack(), 1, "waiter")
	require.NoError(t, err)

	m := k.NewMutex()
	k.asTask(owner)
	k.Wait(m)
	k.listRemove(&k.ready, owner)
	k.tasks[owner].state = StateInactive

	k.asTask(waiter)
	k.Wait(m)

	for i := range k.tasks {
		assert.LessOrEqual(t, k.tasks[i].priority, k.tasks[i].basePriority)
	}
}
