package kernel

import "github.com/gigaika/mrtos/kernel/klog"

// Sleep moves the calling task from ready to the sleep list for at least
// ms milliseconds (jitter bounded by one tick period) and requests a
// reschedule. Must be called from task context, never from Tick or any
// other kernel-internal path.
func (k *Kernel) Sleep(ms uint32) {
	unlock := k.enter()
	self := k.running
	t := &k.tasks[self]

	if t.state == StateReady {
		k.listRemove(&k.ready, self)
	}
	t.sleepRemainingMS = ms
	t.state = StateAsleep
	k.listAppend(&k.sleep, self)
	unlock()

	klog.Get().Log(klog.LevelDebug, "task sleeping", "id", self, "ms", ms)
	k.requestReschedule()
	k.suspendSelf(self)
}
