// Package simbsp is a host-runnable bsp.Provider: it runs each task body
// as its own goroutine, simulates the hardware tick with a time.Ticker,
// and simulates the context-switch interrupt by calling straight back
// into Kernel.Schedule from a trampoline goroutine. It exists so the
// kernel package's own tests — and any example program — can run
// without real hardware, the same role a software/simulator target plays
// in the original C build.
//
// Kernel.New's PrimeStack call never produces a frame simbsp interprets
// directly (there's no simulated register file); instead simbsp learns
// the task's entry function through the TaskRegistrar hook and starts
// its goroutine there, then parks every goroutine except the currently
// "running" one via the Suspender hook, so that from the kernel's
// perspective exactly one task is ever making progress at a time, same
// as the real, single-core target.
package simbsp

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gigaika/mrtos/bsp"
	"github.com/gigaika/mrtos/kernel"
)

// Provider is a bsp.Provider plus the kernel's optional TaskRegistrar,
// Suspender and Attacher capabilities.
type Provider struct {
	tickPeriod time.Duration

	irqMu sync.Mutex

	mu       sync.Mutex
	cond     *sync.Cond
	k        *kernel.Kernel
	bodies   map[kernel.TaskID]func()
	launched map[kernel.TaskID]bool

	pendingSwitch bool

	interruptsEnabled atomic.Bool

	group  *errgroup.Group
	stopCh chan struct{}
}

// New creates a Provider whose simulated hardware tick fires every
// tickPeriod. tickPeriod should match the Kernel's configured TickMS
// (via kernel.WithTickPeriod) for sleep/period accounting to mean what
// it says in wall-clock terms; the kernel doesn't care either way, since
// it only counts ticks.
func New(tickPeriod time.Duration) *Provider {
	p := &Provider{
		tickPeriod: tickPeriod,
		bodies:     make(map[kernel.TaskID]func()),
		launched:   make(map[kernel.TaskID]bool),
		stopCh:     make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// ClockConfigure is a no-op: there is no real clock tree to bring up.
func (p *Provider) ClockConfigure(uint32) {}

// HardwareInit starts the background tick and trampoline goroutines. It
// must not enable interrupts, per the Provider contract, so the tick
// goroutine is started suspended-by-proxy: it runs, but does not call
// Kernel.Tick until InterruptsEnable flips interruptsEnabled (guarded the
// same way a real masked-interrupt pending-bit would be).
func (p *Provider) HardwareInit() {
	var group errgroup.Group
	p.group = &group

	group.Go(func() error {
		ticker := time.NewTicker(p.tickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-p.stopCh:
				return nil
			case <-ticker.C:
				if p.interruptsEnabled.Load() {
					p.k.Tick()
				}
			}
		}
	})

	group.Go(func() error {
		for {
			select {
			case <-p.stopCh:
				return nil
			default:
			}
			p.mu.Lock()
			for !p.pendingSwitch {
				p.cond.Wait()
				select {
				case <-p.stopCh:
					p.mu.Unlock()
					return nil
				default:
				}
			}
			p.pendingSwitch = false
			p.mu.Unlock()

			p.k.Schedule()
			p.launchAndWake()
		}
	})
}

// RequestContextSwitch coalesces any number of pending requests into one
// trampoline wakeup, matching real hardware's "setting an already-set
// pending-interrupt bit is a no-op" behavior, and never blocks.
func (p *Provider) RequestContextSwitch() {
	p.mu.Lock()
	p.pendingSwitch = true
	p.cond.Broadcast()
	p.mu.Unlock()
}

// InterruptsEnable and InterruptsDisable gate whether the simulated tick
// goroutine is allowed to call into the kernel yet. Before Launch calls
// InterruptsEnable, HardwareInit's background goroutines are already
// running (matching real hardware, where the tick timer is configured
// but masked), but the idle task may not exist yet, so ticks must be a
// no-op until Launch says otherwise.
func (p *Provider) InterruptsEnable()  { p.interruptsEnabled.Store(true) }
func (p *Provider) InterruptsDisable() { p.interruptsEnabled.Store(false) }

// CriticalEnter locks an internal mutex distinct from the kernel's own,
// which is what a real target's interrupt-mask register would be:
// something the kernel asks the BSP to hold on its behalf, not something
// the kernel implements itself. Returns an unused marker; simbsp doesn't
// model nested interrupt priority levels because the kernel never nests
// its own critical sections.
func (p *Provider) CriticalEnter() uintptr {
	p.irqMu.Lock()
	return 1
}

// CriticalExit releases the lock CriticalEnter took.
func (p *Provider) CriticalExit(uintptr) {
	p.irqMu.Unlock()
}

// PrimeStack has nothing to write into for a simulated target with no
// register file; it records nothing here; the actual dispatch-time
// behavior comes from RegisterTask plus the trampoline. Returns 0, an
// arbitrary stack-top value the kernel never otherwise inspects.
func (p *Provider) PrimeStack(stack []bsp.StackWord, entry func()) int {
	return 0
}

// FrameSlotCount is 1: simbsp writes nothing into the stack, but the
// kernel still requires callers to supply a non-empty stack slice, if
// only so a zero-length stack reliably fails task creation the same way
// it would on real hardware.
func (p *Provider) FrameSlotCount() int { return 1 }

// RegisterTask implements kernel.TaskRegistrar.
func (p *Provider) RegisterTask(id kernel.TaskID, entry func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies[id] = entry
}

// AttachKernel implements kernel.Attacher.
func (p *Provider) AttachKernel(k *kernel.Kernel) {
	p.k = k
}

// Suspend implements kernel.Suspender: it blocks the calling goroutine
// until the kernel's Running() TaskID is once again id, which is how a
// task body that just called Sleep, Wait or Relinquish "returns" only
// once really redispatched, without this package needing any actual
// stack-switching machinery.
func (p *Provider) Suspend(id kernel.TaskID) {
	p.mu.Lock()
	for p.k.Running() != id {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// launchAndWake starts the goroutine for whichever task the scheduler
// just selected, the first time it's selected, and wakes every goroutine
// parked in Suspend so the one matching the new Running() id can
// proceed.
func (p *Provider) launchAndWake() {
	running := p.k.Running()

	p.mu.Lock()
	already := p.launched[running]
	body := p.bodies[running]
	if !already {
		p.launched[running] = true
	}
	p.mu.Unlock()

	if !already && body != nil {
		// Task bodies are expected to run forever (see package kernel's
		// doc.go); they are deliberately not tracked by p.group, which
		// Stop waits on, or Stop would never return.
		go body()
	}

	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
}

// Stop halts the tick and trampoline goroutines and waits for them to
// observe the stop signal. Launched task goroutines are not waited for.
// Task goroutines blocked in Suspend for a
// TaskID that will never run again are woken but remain parked forever;
// Stop does not attempt to force them to return, matching that real
// hardware has no way to un-run a task either — it can only be reset.
func (p *Provider) Stop() {
	close(p.stopCh)
	p.mu.Lock()
	p.cond.Broadcast()
	p.mu.Unlock()
	_ = p.group.Wait()
}
