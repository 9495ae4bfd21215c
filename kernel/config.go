package kernel

// Config holds the compile-time constants the C original expressed as
// preprocessor macros in mrtos_config.h. New starts from the defaults
// listed on each field and applies the given Options over them; a
// Config is never passed in directly, and every With option rejects a
// zero or negative value with a panic.
type Config struct {
	// HighestPriority is the smallest (most important) priority number a
	// user task may have. Defaults to 1.
	HighestPriority int32
	// LowestPriority is the largest (least important) priority number a
	// user task may have. The idle task runs at LowestPriority+1, strictly
	// below any user task. Defaults to 255.
	LowestPriority int32
	// MaxUserTasks bounds both the task arena and the periodic registry.
	// Defaults to 32.
	MaxUserTasks int
	// TickMS is the hardware tick period. Defaults to 1.
	TickMS uint32
	// TimeSliceMS is the maximum time a task runs before a forced
	// reschedule, assuming nothing else preempts it sooner. Defaults to 5.
	TimeSliceMS uint32
	// SoftTimerCapacity bounds the soft-timer table. Defaults to 8.
	SoftTimerCapacity int
}

const (
	defaultHighestPriority   = 1
	defaultLowestPriority    = 255
	defaultMaxUserTasks      = 32
	defaultTickMS            = 1
	defaultTimeSliceMS       = 5
	defaultSoftTimerCapacity = 8
)

func defaultConfig() Config {
	return Config{
		HighestPriority:   defaultHighestPriority,
		LowestPriority:    defaultLowestPriority,
		MaxUserTasks:      defaultMaxUserTasks,
		TickMS:            defaultTickMS,
		TimeSliceMS:       defaultTimeSliceMS,
		SoftTimerCapacity: defaultSoftTimerCapacity,
	}
}

// Option configures a Kernel at New time.
type Option func(*Config)

// WithPriorityRange overrides the [highest, lowest] priority band. Panics
// if highest >= lowest, since the idle task needs a free slot at
// lowest+1.
func WithPriorityRange(highest, lowest int32) Option {
	return func(c *Config) {
		if highest >= lowest {
			panic("mrtos: WithPriorityRange: highest must be numerically less than lowest")
		}
		c.HighestPriority = highest
		c.LowestPriority = lowest
	}
}

// WithMaxUserTasks overrides the task arena capacity.
func WithMaxUserTasks(n int) Option {
	return func(c *Config) {
		if n <= 0 {
			panic("mrtos: WithMaxUserTasks: n must be positive")
		}
		c.MaxUserTasks = n
	}
}

// WithTickPeriod overrides the hardware tick period, in milliseconds.
func WithTickPeriod(ms uint32) Option {
	return func(c *Config) {
		if ms == 0 {
			panic("mrtos: WithTickPeriod: ms must be positive")
		}
		c.TickMS = ms
	}
}

// WithTimeSlice overrides the round-robin time slice, in milliseconds.
func WithTimeSlice(ms uint32) Option {
	return func(c *Config) {
		if ms == 0 {
			panic("mrtos: WithTimeSlice: ms must be positive")
		}
		c.TimeSliceMS = ms
	}
}

// WithSoftTimerCapacity overrides the soft-timer table size.
func WithSoftTimerCapacity(n int) Option {
	return func(c *Config) {
		if n <= 0 {
			panic("mrtos: WithSoftTimerCapacity: n must be positive")
		}
		c.SoftTimerCapacity = n
	}
}

func (c Config) apply(opts []Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
