package kernel

// Task body contract: the entry func passed to CreateTask and
// CreatePeriodicTask is expected to run forever (an aperiodic task
// typically loops calling Sleep or Wait; a periodic task does one unit
// of work per release and ends it with Relinquish). A task entry that
// returns behaves exactly as it would on real hardware if the TCB were
// reused without being re-primed: undefined. This package never reuses a
// returned task's arena slot automatically.
