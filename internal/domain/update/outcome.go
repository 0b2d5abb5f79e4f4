package update

// Outcome is the terminal result of one update run.
type Outcome int

const (
	// Failed means a stage aborted the pipeline; the caller keeps running the installed binary.
	Failed Outcome = iota
	// UpToDate means the registry has nothing newer than the running build.
	UpToDate
	// Updated means a new binary was installed and the process should restart.
	Updated
)

// String returns a lowercase label suitable for logs.
func (o Outcome) String() string {
	switch o {
	case UpToDate:
		return "up-to-date"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ShouldRestart reports whether the caller must terminate and relaunch the process.
func (o Outcome) ShouldRestart() bool {
	return o == Updated
}
