package construct

import "sync/atomic"

// PrintSettings holds the process-wide tuning knobs for rendering parsed
// values for humans (tooling, REPL, debug logging) — separate from
// ParseOptions/BuildOptions, which configure one invocation.
type PrintSettings struct {
	// PrintFalseFlags includes record entries whose value is the bool
	// false (such as unset FlagsEnum bits), not just the true ones.
	PrintFalseFlags bool

	// PrintFullStrings disables truncation of long string values; byte
	// values are never truncated.
	PrintFullStrings bool

	// PrintPrivateEntries includes reserved context-style names ("_foo")
	// when rendering a record.
	PrintPrivateEntries bool
}

var printSettings atomic.Value

func init() {
	printSettings.Store(PrintSettings{})
}

// SetPrintSettings replaces the process-wide print tuning knobs. Safe for
// concurrent use with GetPrintSettings; callers never mutate the shared
// struct in place.
func SetPrintSettings(s PrintSettings) {
	printSettings.Store(s)
}

// GetPrintSettings returns the current process-wide print tuning knobs.
func GetPrintSettings() PrintSettings {
	return printSettings.Load().(PrintSettings)
}
