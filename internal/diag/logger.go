package diag

import "sync"

// Logger — приёмник сообщений сессии. Каждое сообщение передаётся отдельным
// вызовом; реализации не должны склеивать или переупорядочивать их.
type Logger interface {
	Note(msg string)
	Warning(msg string, loc Location, hints []string)
	Error(msg string, loc Location, hints []string)
}

// Kind separates the three logger channels.
type Kind uint8

const (
	KindNote Kind = iota
	KindWarning
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindWarning:
		return "warning"
	case KindError:
		return "error"
	default:
		return "note"
	}
}

// Entry is one recorded logger call.
type Entry struct {
	Kind     Kind
	Message  string
	Location Location
	Hints    []string
}

// Collector records every call. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
}

// NewCollector creates an empty collector.
func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Note(msg string) {
	c.add(Entry{Kind: KindNote, Message: msg, Location: NoLocation})
}

func (c *Collector) Warning(msg string, loc Location, hints []string) {
	c.add(Entry{Kind: KindWarning, Message: msg, Location: loc, Hints: hints})
}

func (c *Collector) Error(msg string, loc Location, hints []string) {
	c.add(Entry{Kind: KindError, Message: msg, Location: loc, Hints: hints})
}

func (c *Collector) add(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

// Entries returns a copy of the recorded entries in call order.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Drain returns the recorded entries and forgets them.
func (c *Collector) Drain() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.entries
	c.entries = nil
	return out
}

// HasErrors reports whether at least one error was recorded.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].Kind == KindError {
			return true
		}
	}
	return false
}

// Len returns the number of recorded entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Multi forwards every call to each logger in order.
type Multi []Logger

func (m Multi) Note(msg string) {
	for _, l := range m {
		l.Note(msg)
	}
}

func (m Multi) Warning(msg string, loc Location, hints []string) {
	for _, l := range m {
		l.Warning(msg, loc, hints)
	}
}

func (m Multi) Error(msg string, loc Location, hints []string) {
	for _, l := range m {
		l.Error(msg, loc, hints)
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Note(string)                        {}
func (Nop) Warning(string, Location, []string) {}
func (Nop) Error(string, Location, []string)   {}
