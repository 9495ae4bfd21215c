package kernel

import "github.com/gigaika/mrtos/kernel/klog"

// SoftTimerHandle indexes into the soft-timer table. InvalidTimerHandle
// is returned alongside false when creation fails.
type SoftTimerHandle int32

// InvalidTimerHandle is the sentinel returned on a failed
// CreateSoftTimer/CreatePeriodicSignal call.
const InvalidTimerHandle SoftTimerHandle = -1

// SoftTimerEntry is one slot of the fixed-capacity soft-timer table.
// Exactly one of callback or sem is set, never both: a plain soft timer
// invokes a callback from tick context, while a periodic signal
// increments a semaphore instead, which is the safer choice for any
// reaction that might need to block or do non-trivial work on a task's
// own stack rather than the tick ISR's.
type SoftTimerEntry struct {
	used bool

	callback func()
	sem      *Semaphore

	basePeriodMS uint32
	remainingMS  uint32
}

// CreateSoftTimer registers callback to run every periodMS, invoked from
// Tick's critical section. callback must be bounded and non-blocking —
// it runs with the same constraints as an interrupt handler. A full
// table is not an error: it is reported by returning
// (InvalidTimerHandle, false), the same non-error sentinel contract
// CreatePeriodicSignal uses, since a caller choosing not to size
// SoftTimerCapacity generously enough is an ordinary, expected runtime
// condition, not a kernel invariant violation.
func (k *Kernel) CreateSoftTimer(callback func(), periodMS uint32) (SoftTimerHandle, bool) {
	defer k.enter()()
	return k.newSoftTimerLocked(callback, nil, periodMS)
}

// CreatePeriodicSignal registers sem to be signalled every periodMS.
// Because Signal only ever unblocks a waiter and requests a reschedule,
// this is safe even though the general signal path may touch more kernel
// state than a plain callback. See CreateSoftTimer for the full-table
// contract.
func (k *Kernel) CreatePeriodicSignal(sem *Semaphore, periodMS uint32) (SoftTimerHandle, bool) {
	defer k.enter()()
	return k.newSoftTimerLocked(nil, sem, periodMS)
}

func (k *Kernel) newSoftTimerLocked(callback func(), sem *Semaphore, periodMS uint32) (SoftTimerHandle, bool) {
	if periodMS == 0 {
		Fatal(newError(ErrInvariantViolation, "soft timer period must be positive"))
		return InvalidTimerHandle, false
	}

	for i := range k.softTimers {
		if !k.softTimers[i].used {
			k.softTimers[i] = SoftTimerEntry{
				used:         true,
				callback:     callback,
				sem:          sem,
				basePeriodMS: periodMS,
				remainingMS:  periodMS,
			}
			return SoftTimerHandle(i), true
		}
	}

	if len(k.softTimers) >= k.cfg.SoftTimerCapacity {
		return InvalidTimerHandle, false
	}

	k.softTimers = append(k.softTimers, SoftTimerEntry{
		used:         true,
		callback:     callback,
		sem:          sem,
		basePeriodMS: periodMS,
		remainingMS:  periodMS,
	})
	return SoftTimerHandle(len(k.softTimers) - 1), true
}

// DestroySoftTimer zeroes handle's slot, making it immediately eligible
// for reuse. A callback already in progress (impossible on a single
// execution context, but kept as documented behavior for clarity)
// completes regardless.
func (k *Kernel) DestroySoftTimer(handle SoftTimerHandle) error {
	defer k.enter()()
	if handle < 0 || int(handle) >= len(k.softTimers) || !k.softTimers[handle].used {
		return newError(ErrInvariantViolation, "destroy of unknown soft timer handle")
	}
	k.softTimers[handle] = SoftTimerEntry{}
	klog.Get().Log(klog.LevelDebug, "soft timer destroyed", "handle", handle)
	return nil
}

// StopPeriodicSignal is an alias for DestroySoftTimer kept under the
// name the periodic-signal half of the API uses in spec; both halves of
// the table share one representation.
func (k *Kernel) StopPeriodicSignal(handle SoftTimerHandle) error {
	return k.DestroySoftTimer(handle)
}
