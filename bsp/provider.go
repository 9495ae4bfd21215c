// Package bsp defines the board-support contract the kernel consumes but
// never implements. Everything in this package is interface and constants;
// the concrete hardware (or, for host testing, github.com/gigaika/mrtos/simbsp)
// lives on the other side of it.
package bsp

// StackWord is the native width of one stack slot. On a real target this is
// whatever the CPU's general-purpose register width is; the kernel never
// interprets the bits, it only counts slots.
type StackWord = uint32

// Provider is the set of primitives a target must supply for the kernel to
// run. None of these are safe to call concurrently with themselves; the
// kernel only ever calls them from within its own critical section or from
// Launch, which runs once.
type Provider interface {
	// ClockConfigure brings up the system clock at the requested frequency,
	// in whatever units the target's BSP documents (the C original uses MHz).
	ClockConfigure(targetFreq uint32)

	// HardwareInit configures the periodic tick interrupt and the deferred
	// context-switch (software) interrupt. Must not enable interrupts.
	HardwareInit()

	// RequestContextSwitch raises the deferred context-switch interrupt.
	// Its ISR is expected to call back into the kernel's scheduler and then
	// restore whatever task the scheduler selected. May be called from
	// within a critical section; must not itself block.
	RequestContextSwitch()

	// InterruptsEnable and InterruptsDisable unconditionally enable or
	// disable interrupts. The kernel calls InterruptsEnable once, from
	// Launch, and never calls InterruptsDisable — everything else uses
	// CriticalEnter/CriticalExit, which is safe to nest.
	InterruptsEnable()
	InterruptsDisable()

	// CriticalEnter disables interrupts and returns a mask that captures
	// whatever the interrupt state was prior to the call. CriticalExit
	// restores exactly that state, so nested critical sections compose
	// correctly instead of unconditionally re-enabling interrupts.
	CriticalEnter() uintptr
	CriticalExit(mask uintptr)

	// PrimeStack writes the initial saved-context frame for a task that has
	// never run, at the top of stack, and returns the stack pointer the
	// first dispatch should resume from. entry is called with no arguments
	// on first dispatch; how that call actually happens is entirely a BSP
	// concern (real hardware pops it off as a program-counter slot, a
	// simulated BSP can just call it directly).
	PrimeStack(stack []StackWord, entry func()) (stackTop int)

	// FrameSlotCount is the number of StackWord slots PrimeStack requires at
	// minimum; task creation rejects stacks smaller than this (spec's
	// "stack too small" fatal condition).
	FrameSlotCount() int
}
