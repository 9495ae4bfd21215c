package kernel

import "github.com/gigaika/mrtos/kernel/klog"

// Semaphore is shared by mutex and flag semantics, distinguished by
// Kind. A MUTEX starts at value 1 and tracks an owner that may receive a
// donated priority; a FLAG starts at value 0, never has an owner, and
// never participates in priority inheritance, which is what makes it
// safe to signal from contexts (like a periodic signal fired by Tick)
// that have no notion of "current task".
type Semaphore struct {
	kind  Kind
	value int32

	owner TaskID

	priorityWasGranted   bool
	priorityGrantedLevel int32
}

// NewMutex creates a mutex semaphore, initial value 1, no owner.
func (k *Kernel) NewMutex() *Semaphore {
	return &Semaphore{kind: KindMutex, value: 1, owner: NoTask}
}

// NewFlag creates a binary signalling flag, initial value 0. Flags have
// no owner and never carry a priority grant.
func (k *Kernel) NewFlag() *Semaphore {
	return &Semaphore{kind: KindFlag, value: 0, owner: NoTask}
}

// Wait decrements sem's value; if the result would go negative the
// calling task blocks until a matching Signal. For a MUTEX, blocking may
// trigger chained priority inheritance up any chain of nested mutex
// ownership, and a direct two-task deadlock is detected and reported via
// Fatal rather than left to hang forever.
func (k *Kernel) Wait(sem *Semaphore) {
	unlock := k.enter()

	sem.value--
	if sem.value >= 0 {
		if sem.kind == KindMutex {
			sem.owner = k.running
		}
		unlock()
		return
	}

	self := k.running

	if sem.kind == KindMutex && sem.owner != NoTask {
		if ownerBlockedOnSelf(k, sem.owner, self) {
			unlock()
			Fatal(newError(ErrDeadlock, "direct mutual block detected in Wait"))
			return
		}
	}

	t := &k.tasks[self]
	if t.state == StateReady {
		k.listRemove(&k.ready, self)
	}
	t.state = StateBlocked
	t.blockedOn = sem
	k.listInsertOrdered(&k.blocked, self)

	if sem.kind == KindMutex && sem.owner != NoTask {
		k.chainInheritLocked(sem, self)
	}

	unlock()

	klog.Get().Log(klog.LevelDebug, "task blocked", "id", self, "kind", sem.kind)
	k.requestReschedule()
	k.suspendSelf(self)
}

// ownerBlockedOnSelf reports whether owner is itself blocked on a
// semaphore held by self — the direct two-task cycle Wait must catch
// before it would otherwise deadlock forever.
func ownerBlockedOnSelf(k *Kernel, owner, self TaskID) bool {
	ot := &k.tasks[owner]
	if ot.state != StateBlocked || ot.blockedOn == nil {
		return false
	}
	return ot.blockedOn.kind == KindMutex && ot.blockedOn.owner == self
}

// chainInheritLocked implements §4.7.4: the waiter's priority is donated
// to sem's owner, and if that owner is itself blocked on another mutex,
// the donation is walked up the chain as far as it still raises
// priority. Caller holds the critical section.
func (k *Kernel) chainInheritLocked(sem *Semaphore, waiter TaskID) {
	waiterPri := k.tasks[waiter].priority
	owner := sem.owner
	if owner == NoTask || higherPriority(k.tasks[owner].priority, waiterPri) {
		// Owner is already strictly more important than the waiter;
		// nothing to donate.
		return
	}

	level := waiterPri
	curSem := sem
	curOwner := owner

	for {
		if k.tasks[curOwner].priority <= level {
			// Owner already at or above the propagated level.
			break
		}
		k.reinsertWithPriorityLocked(curOwner, level)
		curSem.priorityWasGranted = true
		curSem.priorityGrantedLevel = level

		ownerTask := &k.tasks[curOwner]
		if ownerTask.state != StateBlocked || ownerTask.blockedOn == nil {
			break
		}
		nextSem := ownerTask.blockedOn
		if nextSem.kind != KindMutex || nextSem.owner == NoTask {
			break
		}
		curSem = nextSem
		curOwner = nextSem.owner
	}
}

// reinsertWithPriorityLocked changes id's effective priority and
// re-inserts it into whichever list currently holds it, to preserve the
// priority-ordering invariant. The idle task is never a list member, and
// asleep or inactive tasks sit in no ordered list; for those only the
// priority field changes.
func (k *Kernel) reinsertWithPriorityLocked(id TaskID, priority int32) {
	t := &k.tasks[id]
	t.priority = priority
	if id == k.idle {
		return
	}

	var l *taskList
	switch t.state {
	case StateReady:
		l = &k.ready
	case StateBlocked:
		l = &k.blocked
	default:
		return
	}
	k.listRemove(l, id)
	k.listInsertOrdered(l, id)
}

// Signal increments sem's value (saturating at +1), releases any
// priority this semaphore had donated to its owner, and — if the
// increment leaves value < 1 — unblocks the highest-priority
// longest-waiting task blocked on it. Signal takes the kernel's critical
// section itself, so it cannot be called from a soft-timer callback,
// which already runs inside Tick's critical section: the non-reentrant
// lock would block forever. A periodic signal (CreatePeriodicSignal) is
// signalled from that context through signalLocked instead.
func (k *Kernel) Signal(sem *Semaphore) {
	unlock := k.enter()
	shouldReschedule := k.signalLocked(sem)
	unlock()

	if shouldReschedule {
		k.requestReschedule()
	}
}

// signalLocked is Signal's body, factored out so the soft-timer tick
// path (already holding the critical section) can call it directly
// without recursively re-entering k.mu.
func (k *Kernel) signalLocked(sem *Semaphore) bool {
	if sem.value < 1 {
		sem.value++
	}

	if sem.kind == KindMutex && sem.owner != NoTask {
		k.releaseDynamicPriorityLocked(sem)
		sem.owner = NoTask
	}

	shouldReschedule := false

	if sem.value < 1 {
		waiter := k.firstBlockedOnLocked(sem)
		if waiter != NoTask {
			wt := &k.tasks[waiter]
			k.listRemove(&k.blocked, waiter)
			wt.blockedOn = nil
			wt.state = StateReady
			k.listInsertOrdered(&k.ready, waiter)
			if sem.kind == KindMutex {
				sem.owner = waiter
			}
			if higherPriority(wt.priority, k.tasks[k.running].priority) {
				shouldReschedule = true
			}
		}
	}

	return shouldReschedule
}

// firstBlockedOnLocked returns the head of the blocked list whose
// blocked_on is sem; the blocked list's priority-ordered, FIFO-stable
// invariant guarantees this is the correct task to wake.
func (k *Kernel) firstBlockedOnLocked(sem *Semaphore) TaskID {
	cursor := k.blocked.head
	for cursor != NoTask {
		if k.tasks[cursor].blockedOn == sem {
			return cursor
		}
		cursor = k.tasks[cursor].next
	}
	return NoTask
}

// releaseDynamicPriorityLocked implements §4.7.5 step 2: undoes the
// priority this semaphore donated to its owner, accounting for any other
// grant still in force from a different semaphore the owner also holds.
func (k *Kernel) releaseDynamicPriorityLocked(sem *Semaphore) {
	if !sem.priorityWasGranted {
		return
	}
	owner := sem.owner
	ownerPri := k.tasks[owner].priority

	if higherPriority(ownerPri, sem.priorityGrantedLevel) {
		// Something else has since granted a more important level;
		// this semaphore's grant is already moot.
		sem.priorityWasGranted = false
		sem.priorityGrantedLevel = 0
		return
	}

	best := k.tasks[owner].basePriority
	cursor := k.blocked.head
	for cursor != NoTask {
		bt := &k.tasks[cursor]
		if bt.blockedOn != nil && bt.blockedOn.kind == KindMutex && bt.blockedOn.owner == owner && bt.blockedOn != sem {
			if higherPriority(bt.priority, best) {
				best = bt.priority
			}
		}
		cursor = k.tasks[cursor].next
	}

	k.reinsertWithPriorityLocked(owner, best)
	sem.priorityWasGranted = false
	sem.priorityGrantedLevel = 0
}
