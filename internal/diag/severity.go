package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevWarning is for diagnostics that do not stop compilation.
	SevWarning Severity = iota + 1
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}
