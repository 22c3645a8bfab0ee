// Package version carries build metadata set with -ldflags, for example
//
//	-X sysdash/internal/version.Version=v1.0.0 -X sysdash/internal/version.Commit=abc1234
package version

var (
	// Version is the release tag; empty for development builds.
	Version = ""
	// Commit is the short git SHA.
	Commit = ""
	// Date is the UTC build time (RFC3339).
	Date = ""
	// Dirty is "dirty" when built from a modified tree.
	Dirty = ""
)

// String is the label shown on the dashboard, the tray tooltip and
// --version: the release tag, else "dev-<sha>" with a trailing "*" for dirty
// trees, else "dev".
func String() string {
	switch {
	case Version != "":
		return Version
	case Commit == "":
		return "dev"
	case Dirty == "dirty":
		return "dev-" + Commit + "*"
	default:
		return "dev-" + Commit
	}
}
