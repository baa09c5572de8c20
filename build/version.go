package build

const (
	// Version is the current version of the Scatter daemons.
	Version = "0.3.1"

	// IssuesURL is where sanity check failures ask the user to report.
	IssuesURL = "https://github.com/ScatterLabs/Scatter/issues"
)
