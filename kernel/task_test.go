package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask_ClampsPriorityToConfiguredRange(t *testing.T) {
	k, _ := newTestKernel(WithPriorityRange(1, 10))

	tooHigh, err := k.CreateTask(func() {}, testStack(), 0, "a")
	require.NoError(t, err)
	assert.Equal(t, int32(1), k.tasks[tooHigh].priority)

	tooLow, err := k.CreateTask(func() {}, testStack(), 99, "b")
	require.NoError(t, err)
	assert.Equal(t, int32(10), k.tasks[tooLow].priority)
}

func TestCreateTask_StackTooSmall(t *testing.T) {
	k, _ := newTestKernel()

	_, err := k.CreateTask(func() {}, nil, 5, "a")
	require.Error(t, err)
	var kerr *Error
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, ErrStackTooSmall, kerr.Code)
}

func TestCreateTask_AperiodicEntersReadyImmediately(t *testing.T) {
	k, _ := newTestKernel()

	id, err := k.CreateTask(func() {}, testStack(), 5, "a")
	require.NoError(t, err)
	assert.Equal(t, StateReady, k.tasks[id].state)
	assert.Equal(t, id, k.ready.head)
}

func TestCreatePeriodicTask_NotReadyUntilFirstRelease(t *testing.T) {
	k, _ := newTestKernel()

	id, err := k.CreatePeriodicTask(func() {}, testStack(), 5, 20, "p")
	require.NoError(t, err)

	assert.Equal(t, StateInactive, k.tasks[id].state)
	assert.True(t, k.ready.empty())
	assert.Contains(t, k.periodic, id)
}
