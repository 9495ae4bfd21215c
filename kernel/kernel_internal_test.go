package kernel

import "github.com/gigaika/mrtos/bsp"

// fakeBSP is the minimal Provider double used throughout this package's
// own tests: it never implements TaskRegistrar/Suspender/Attacher, since
// these tests drive the kernel directly and synchronously the way the
// original C test suite calls OS_Schedule/OS_Wait/OS_Signal by hand,
// without any notion of a real or simulated CPU dispatching task bodies.
type fakeBSP struct {
	switchRequests    int
	criticalDepth     int
	interruptsEnabled bool
}

func newFakeBSP() *fakeBSP { return &fakeBSP{} }

func (f *fakeBSP) ClockConfigure(uint32) {}
func (f *fakeBSP) HardwareInit()         {}
func (f *fakeBSP) RequestContextSwitch() { f.switchRequests++ }
func (f *fakeBSP) InterruptsEnable()     { f.interruptsEnabled = true }
func (f *fakeBSP) InterruptsDisable()    { f.interruptsEnabled = false }

func (f *fakeBSP) CriticalEnter() uintptr {
	f.criticalDepth++
	return uintptr(f.criticalDepth)
}

func (f *fakeBSP) CriticalExit(mask uintptr) {
	f.criticalDepth--
}

func (f *fakeBSP) PrimeStack(stack []bsp.StackWord, entry func()) int {
	return len(stack) - 1
}

func (f *fakeBSP) FrameSlotCount() int { return 1 }

// newTestKernel builds a Kernel wired to a fresh fakeBSP, with an idle
// task that never does anything, ready for direct method-level testing.
func newTestKernel(opts ...Option) (*Kernel, *fakeBSP) {
	f := newFakeBSP()
	idleStack := make([]bsp.StackWord, 16)
	k, err := New(f, func() {}, idleStack, opts...)
	if err != nil {
		panic(err)
	}
	return k, f
}

func testStack() []bsp.StackWord {
	return make([]bsp.StackWord, 16)
}
