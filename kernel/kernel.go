// Package kernel implements the scheduler and synchronization CORE of a
// small preemptive fixed-priority real-time kernel: the task control
// block and its state machine, the four intrusive membership lists, the
// priority-selection scheduler and tick handler, the mutex/flag
// semaphores with chained priority inheritance, and the soft-timer
// table.
//
// Everything outside that boundary — clock configuration, the actual
// context-switch trampoline, interrupt masking, and the initial register
// frame layout — is the bsp.Provider contract this package consumes but
// never implements. See package simbsp for a host-runnable Provider used
// by this package's own tests.
//
// *Kernel's exported methods take an internal mutex, which makes them
// safe to call from multiple goroutines — a host-testing convenience the
// real hardware never needed, since it only ever has one instruction
// stream running at a time. The kernel's semantics still assume exactly
// one logical "current task", tracked in running.
package kernel

import (
	"sync"
	"sync/atomic"

	"github.com/gigaika/mrtos/bsp"
	"github.com/gigaika/mrtos/kernel/klog"
)

// TaskRegistrar is an optional capability a bsp.Provider may implement so
// it learns which function body a TaskID corresponds to, at the moment
// the task is created. bsp.Provider.PrimeStack's job is only to write the
// initial frame; a Provider that wants to actually run the task later
// (e.g. simbsp, which runs bodies as goroutines) needs this hook since
// the frame alone carries no information a simulated CPU can dispatch
// into.
type TaskRegistrar interface {
	RegisterTask(id TaskID, entry func())
}

// Suspender is an optional capability a bsp.Provider may implement to
// actually park the calling goroutine until the named task is dispatched
// again. On real hardware this isn't needed — triggering PendSV and
// returning is enough, because the CPU simply stops running this
// instruction stream until it's resumed by the real context switch. A
// simulated Provider instead must block explicitly to get the same
// "caller appears to return normally after resumption" behavior the
// design notes describe.
type Suspender interface {
	Suspend(id TaskID)
}

// Attacher is an optional capability a bsp.Provider may implement to
// receive a back-reference to the Kernel it serves, set once by New
// before ClockConfigure, HardwareInit and the idle task's creation.
// Needed by providers (like
// simbsp) whose RequestContextSwitch must itself call back into
// Kernel.Schedule.
type Attacher interface {
	AttachKernel(k *Kernel)
}

// Kernel is the sole mutable authority over all kernel state: the task
// arena, the four membership lists, the soft-timer table and the tick
// counter. Must be constructed with New.
type Kernel struct {
	mu  sync.Mutex
	cfg Config
	bsp bsp.Provider

	tasks   []taskRecord
	created int

	idle    TaskID
	running TaskID

	ready   taskList
	sleep   taskList
	blocked taskList

	periodic []TaskID

	softTimers []SoftTimerEntry

	tickCount          atomic.Uint64
	ticksSinceDispatch uint32

	launched bool
}

// New constructs a Kernel, configures the clock and hardware tick/context
// switch interrupts via p, and creates the idle task. Mirrors OS_Init:
// must be called exactly once, before any call to CreateTask or
// CreatePeriodicTask.
func New(p bsp.Provider, idleFn func(), idleStack []bsp.StackWord, opts ...Option) (*Kernel, error) {
	cfg := defaultConfig().apply(opts)

	k := &Kernel{
		cfg:      cfg,
		bsp:      p,
		tasks:    make([]taskRecord, cfg.MaxUserTasks+1),
		periodic: make([]TaskID, 0, cfg.MaxUserTasks),
		idle:     TaskID(cfg.MaxUserTasks), // the arena's last slot is reserved for idle
		running:  NoTask,
	}
	for i := range k.tasks {
		k.tasks[i].next = NoTask
		k.tasks[i].prev = NoTask
	}
	k.ready.head, k.ready.tail = NoTask, NoTask
	k.sleep.head, k.sleep.tail = NoTask, NoTask
	k.blocked.head, k.blocked.tail = NoTask, NoTask

	if att, ok := p.(Attacher); ok {
		att.AttachKernel(k)
	}

	p.ClockConfigure(0)
	p.HardwareInit()

	if err := k.createIdleTask(idleFn, idleStack); err != nil {
		return nil, err
	}
	k.running = k.idle

	klog.Get().Log(klog.LevelInfo, "kernel initialized",
		"max_user_tasks", cfg.MaxUserTasks,
		"tick_ms", cfg.TickMS,
		"time_slice_ms", cfg.TimeSliceMS,
	)
	return k, nil
}

// Launch enables interrupts and requests the first dispatch. Must be
// called after New and after all startup tasks have been created.
func (k *Kernel) Launch() {
	k.mu.Lock()
	k.launched = true
	k.mu.Unlock()

	k.bsp.InterruptsEnable()
	k.bsp.RequestContextSwitch()
}

// TickCount returns the number of hardware ticks observed so far. Safe to
// call from any goroutine without taking the kernel's critical section —
// it's a pure diagnostic read of a single word, exactly as spec allows.
func (k *Kernel) TickCount() uint64 {
	return k.tickCount.Load()
}

// Running returns the TaskID the scheduler currently considers to be
// running.
func (k *Kernel) Running() TaskID {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.running
}

// enter begins a critical section and returns the function that ends it.
// Two things happen, in order: the BSP is asked to mask interrupts (the
// real-hardware half of "critical section", and the only half that
// matters before a scheduler exists at all), then the kernel's own mutex
// is taken (the host-testing half, making these methods additionally
// safe to call from multiple goroutines). Both are unwound in reverse
// order by the returned func.
func (k *Kernel) enter() func() {
	mask := k.bsp.CriticalEnter()
	k.mu.Lock()
	return func() {
		k.mu.Unlock()
		k.bsp.CriticalExit(mask)
	}
}

// requestReschedule asks the BSP to raise the deferred context-switch
// interrupt. Must only be called outside the critical section.
func (k *Kernel) requestReschedule() {
	k.bsp.RequestContextSwitch()
}

// suspendSelf blocks the calling goroutine, if the Provider supports it,
// until id is dispatched again. Must only be called outside the critical
// section, after requestReschedule.
func (k *Kernel) suspendSelf(id TaskID) {
	if s, ok := k.bsp.(Suspender); ok {
		s.Suspend(id)
	}
}
