package core

// LogLine is a single line of log text. Lines are immutable once produced and
// ordered by arrival; duplicates are allowed.
type LogLine struct {
	Source   string `json:"source,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
	Stream   string `json:"stream"` // "file", "journal", "sse", "seed"
	Line     string `json:"line"`
}
