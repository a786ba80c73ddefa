package progress

// Level classifies a log line for the observer.
type Level int

const (
	// LevelInfo is ordinary progress output.
	LevelInfo Level = iota
	// LevelSkip marks input rejected by validation before any I/O.
	LevelSkip
	// LevelError marks a failed fetch, parse, or write.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSkip:
		return "skip"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one message from the crawl to its observer.
// The concrete types are LogLine, CountIncrement and Completed.
type Event interface {
	event()
}

// LogLine is a human-readable progress message.
type LogLine struct {
	Level Level
	Text  string
}

// CountIncrement adds N to the observer's saved-file counter.
type CountIncrement struct {
	N int
}

// Completed is always the last event of a run.
type Completed struct{}

func (LogLine) event()        {}
func (CountIncrement) event() {}
func (Completed) event()      {}
