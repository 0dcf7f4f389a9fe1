package domain

// LifecycleState is the position of the dispatcher's session lifecycle.
type LifecycleState string

const (
	StateClosed  LifecycleState = "closed"  // No session, nothing pending
	StateOpening LifecycleState = "opening" // An open is in flight
	StateOpen    LifecycleState = "open"    // Accessors are valid
)

// LogLevel mirrors the SDK verbosity levels.
type LogLevel int

const (
	LogVerbose LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

// Valid reports whether the level is one of the four known levels.
func (l LogLevel) Valid() bool {
	return l >= LogVerbose && l <= LogError
}

func (l LogLevel) String() string {
	switch l {
	case LogVerbose:
		return "verbose"
	case LogInfo:
		return "info"
	case LogWarning:
		return "warning"
	case LogError:
		return "error"
	}
	return "unknown"
}
