package kernel

import "github.com/gigaika/mrtos/kernel/klog"

// Tick is the hardware tick handler, called once per TICK_MS by the BSP.
// It ages the sleep list, the periodic registry and the soft-timer
// table, and requests a reschedule if a higher-priority task became
// runnable or the current task's time slice expired.
func (k *Kernel) Tick() {
	unlock := k.enter()

	k.tickCount.Add(1)
	k.ticksSinceDispatch++

	mustReschedule := false

	k.ageSleepListLocked(&mustReschedule)
	k.agePeriodicRegistryLocked(&mustReschedule)
	k.ageSoftTimersLocked(&mustReschedule)

	timeSliceExpired := uint64(k.ticksSinceDispatch)*uint64(k.cfg.TickMS) >= uint64(k.cfg.TimeSliceMS)
	reschedule := timeSliceExpired || mustReschedule
	if reschedule {
		k.ticksSinceDispatch = 0
	}
	unlock()

	// The reschedule request is made after leaving the critical section,
	// like every other requestReschedule call.
	if reschedule {
		k.requestReschedule()
	}
}

func (k *Kernel) ageSleepListLocked(mustReschedule *bool) {
	cursor := k.sleep.head
	for cursor != NoTask {
		next := k.tasks[cursor].next // captured before any relocation
		t := &k.tasks[cursor]

		if t.sleepRemainingMS <= k.cfg.TickMS {
			t.sleepRemainingMS = 0
			k.listRemove(&k.sleep, cursor)
			t.state = StateReady
			k.listInsertOrdered(&k.ready, cursor)
			if higherPriority(t.priority, k.tasks[k.running].priority) {
				*mustReschedule = true
			}
		} else {
			t.sleepRemainingMS -= k.cfg.TickMS
		}

		cursor = next
	}
}

func (k *Kernel) agePeriodicRegistryLocked(mustReschedule *bool) {
	for _, id := range k.periodic {
		t := &k.tasks[id]
		if t.remainingPeriodMS <= k.cfg.TickMS {
			t.remainingPeriodMS = t.basePeriodMS
			if t.hasFullyRan {
				t.hasFullyRan = false
				t.state = StateReady
				k.listInsertOrdered(&k.ready, id)
				if higherPriority(t.priority, k.tasks[k.running].priority) {
					*mustReschedule = true
				}
			}
		} else {
			t.remainingPeriodMS -= k.cfg.TickMS
		}
	}
}

func (k *Kernel) ageSoftTimersLocked(mustReschedule *bool) {
	for i := range k.softTimers {
		e := &k.softTimers[i]
		if !e.used {
			continue
		}
		if e.remainingMS <= k.cfg.TickMS {
			e.remainingMS = e.basePeriodMS
			switch {
			case e.callback != nil:
				e.callback()
			case e.sem != nil:
				if k.signalLocked(e.sem) {
					*mustReschedule = true
				}
			}
		} else {
			e.remainingMS -= k.cfg.TickMS
		}
	}
}

// Relinquish is called by a periodic task to voluntarily end its current
// release: it is removed from the ready list, marked has_fully_ran, and
// a reschedule is requested. The next release happens when Tick's
// periodic-registry pass next finds remaining_period_ms expired.
func (k *Kernel) Relinquish() {
	unlock := k.enter()
	self := k.running
	t := &k.tasks[self]

	if t.state == StateReady {
		k.listRemove(&k.ready, self)
	}
	t.state = StateInactive
	t.hasFullyRan = true
	unlock()

	klog.Get().Log(klog.LevelDebug, "task relinquished", "id", self)
	k.requestReschedule()
	k.suspendSelf(self)
}
