package kernel

import (
	"github.com/gigaika/mrtos/bsp"
	"github.com/gigaika/mrtos/kernel/klog"
)

// CreateTask allocates a TCB from the arena, primes its initial stack
// frame via the BSP, clamps priority into [HIGHEST, LOWEST], and inserts
// it into the ready list. label is a diagnostic name only; it plays no
// role in scheduling.
func (k *Kernel) CreateTask(entry func(), stack []bsp.StackWord, priority int32, label string) (TaskID, error) {
	defer k.enter()()
	id, err := k.newTaskLocked(entry, stack, priority, label)
	if err != nil {
		return NoTask, err
	}
	k.tasks[id].state = StateReady
	k.listInsertOrdered(&k.ready, id)
	klog.Get().Log(klog.LevelInfo, "task created", "id", id, "label", label, "priority", k.tasks[id].priority)
	return id, nil
}

// CreatePeriodicTask is like CreateTask but registers the task in the
// periodic table instead of making it immediately ready: its first
// release happens on expiry of periodMS, handled by Tick.
func (k *Kernel) CreatePeriodicTask(entry func(), stack []bsp.StackWord, priority int32, periodMS uint32, label string) (TaskID, error) {
	defer k.enter()()
	id, err := k.newTaskLocked(entry, stack, priority, label)
	if err != nil {
		return NoTask, err
	}
	t := &k.tasks[id]
	t.state = StateInactive
	t.basePeriodMS = periodMS
	t.remainingPeriodMS = periodMS
	t.hasFullyRan = true
	k.periodic = append(k.periodic, id)
	klog.Get().Log(klog.LevelInfo, "periodic task created", "id", id, "label", label, "priority", t.priority, "period_ms", periodMS)
	return id, nil
}

// createIdleTask builds the one task outside the normal priority band:
// it is never placed in the ready list, and the scheduler falls back to
// it only when the ready list is empty.
func (k *Kernel) createIdleTask(entry func(), stack []bsp.StackWord) error {
	if entry == nil {
		return newError(ErrNotInitialized, "idle task entry must not be nil")
	}
	if len(stack) < k.bsp.FrameSlotCount() {
		return newError(ErrStackTooSmall, "idle stack too small")
	}
	top := k.bsp.PrimeStack(stack, entry)

	t := &k.tasks[k.idle]
	*t = taskRecord{
		used:         true,
		identifier:   "idle",
		entry:        entry,
		stack:        stack,
		stackTop:     top,
		basePriority: k.cfg.LowestPriority + 1,
		priority:     k.cfg.LowestPriority + 1,
		state:        StateReady,
		next:         NoTask,
		prev:         NoTask,
	}
	if reg, ok := k.bsp.(TaskRegistrar); ok {
		reg.RegisterTask(k.idle, entry)
	}
	return nil
}

// newTaskLocked does the work CreateTask and CreatePeriodicTask share:
// arena allocation, priority clamping, and stack priming. Caller holds
// the critical section and is responsible for the state/list-membership
// steps specific to aperiodic vs periodic tasks.
func (k *Kernel) newTaskLocked(entry func(), stack []bsp.StackWord, priority int32, label string) (TaskID, error) {
	if entry == nil {
		return NoTask, newError(ErrInvariantViolation, "task entry must not be nil")
	}
	if len(stack) < k.bsp.FrameSlotCount() {
		return NoTask, newError(ErrStackTooSmall, "stack too small for initial frame")
	}

	id := NoTask
	for i := 0; i < k.cfg.MaxUserTasks; i++ {
		if !k.tasks[i].used {
			id = TaskID(i)
			break
		}
	}
	if id == NoTask {
		return NoTask, newError(ErrCapacityExhausted, "task arena full")
	}

	if priority < k.cfg.HighestPriority {
		priority = k.cfg.HighestPriority
	}
	if priority > k.cfg.LowestPriority {
		priority = k.cfg.LowestPriority
	}

	top := k.bsp.PrimeStack(stack, entry)

	k.tasks[id] = taskRecord{
		used:         true,
		identifier:   label,
		entry:        entry,
		stack:        stack,
		stackTop:     top,
		basePriority: priority,
		priority:     priority,
		next:         NoTask,
		prev:         NoTask,
	}
	k.created++

	if reg, ok := k.bsp.(TaskRegistrar); ok {
		reg.RegisterTask(id, entry)
	}

	return id, nil
}
