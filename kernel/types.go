package kernel

import "github.com/gigaika/mrtos/bsp"

// TaskID identifies a task control block within a Kernel's arena. It
// replaces the intrusive *OS_TCBTypeDef pointers the original C kernel
// passes around: the arena (Kernel.tasks) owns every record, and TaskID is
// just an index into it, so no two goroutines can alias the same record
// through different pointer types.
type TaskID int32

// NoTask is the sentinel for "no task" — an unset semaphore owner, an
// empty list end, or an unlinked next/prev field.
const NoTask TaskID = -1

// State is the task state machine from the spec: a task is in exactly one
// of these at any time, and membership in the ready/sleep/blocked list
// tracks the same thing the state field does (kept in sync by every
// transition).
type State uint8

const (
	StateReady State = iota
	StateAsleep
	StateBlocked
	StateInactive
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateAsleep:
		return "asleep"
	case StateBlocked:
		return "blocked"
	case StateInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Kind distinguishes the two semaphore flavors sharing one implementation.
type Kind uint8

const (
	// KindMutex starts at value 1, tracks an owner, and participates in
	// priority inheritance.
	KindMutex Kind = iota
	// KindFlag starts at value 0, never has an owner, and never inherits
	// priority — signalling it from an ISR is always safe.
	KindFlag
)

func (k Kind) String() string {
	if k == KindFlag {
		return "flag"
	}
	return "mutex"
}

// taskRecord is one slot of the fixed task arena. Two intrusive link
// fields (next, prev) are reused by whichever of the ready/sleep/blocked
// lists currently owns the record — exactly one at a time, per invariant
// I3 — plus, independently, the periodic registry may also reference it.
type taskRecord struct {
	used bool

	identifier string
	entry      func()

	stack    []bsp.StackWord
	stackTop int

	basePriority int32
	priority     int32

	state State

	sleepRemainingMS uint32

	blockedOn *Semaphore

	basePeriodMS      uint32
	remainingPeriodMS uint32
	hasFullyRan       bool

	next, prev TaskID
}

// taskList is a doubly-linked, arena-indexed list: head/tail only, the
// actual next/prev live on the task records themselves.
type taskList struct {
	head, tail TaskID
}

func (l *taskList) empty() bool { return l.head == NoTask }
