// Package reconcile compares a locally edited diagram with a remotely changed
// copy and, when they diverge, marks the differing region with conflict markers.
//
// This is a two-way comparison without a common ancestor: the common leading
// and trailing lines are kept and everything between them is presented as a
// single conflict. It can place the region badly when long repeated runs sit
// next to the edit; no correct-merge guarantee is made.
package reconcile

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Conflict marker lines. The save gate looks for these literal strings.
const (
	MarkerCurrent   = "<<<<<<< Current"
	MarkerSeparator = "======="
	MarkerRemote    = ">>>>>>> Remote Changes"
)

// Kind is the outcome of a reconciliation
type Kind int

const (
	Identical Kind = iota
	NoConflict
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Identical:
		return "identical"
	case NoConflict:
		return "no-conflict"
	case Conflict:
		return "conflict"
	}
	return "unknown"
}

// Result is what Reconcile produced. Text is the text to present: the local
// text when identical, the remote text when the difference is blank lines
// only, and the marked-up merge otherwise.
type Result struct {
	Kind Kind
	Text string
}

// Reconcile compares local against remote
func Reconcile(local, remote string) Result {
	if local == remote {
		return Result{Kind: Identical, Text: local}
	}

	l := strings.Split(local, "\n")
	r := strings.Split(remote, "\n")

	prefix := 0
	for prefix < len(l) && prefix < len(r) && l[prefix] == r[prefix] {
		prefix++
	}

	// the suffix scan never crosses the prefix on either side
	le, re := len(l), len(r)
	for le > prefix && re > prefix && l[le-1] == r[re-1] {
		le--
		re--
	}

	localMiddle := l[prefix:le]
	remoteMiddle := r[prefix:re]

	if blank(localMiddle) && blank(remoteMiddle) {
		return Result{Kind: NoConflict, Text: remote}
	}

	out := make([]string, 0, len(l)+len(r)+3)
	out = append(out, l[:prefix]...)
	out = append(out, MarkerCurrent)
	out = append(out, localMiddle...)
	out = append(out, MarkerSeparator)
	out = append(out, remoteMiddle...)
	out = append(out, MarkerRemote)
	out = append(out, l[le:]...)

	return Result{Kind: Conflict, Text: strings.Join(out, "\n")}
}

func blank(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return false
		}
	}
	return true
}

// HasConflictMarkers reports whether text still holds any conflict marker.
// A document with markers must not be saved.
func HasConflictMarkers(text string) bool {
	return strings.Contains(text, MarkerCurrent) ||
		strings.Contains(text, MarkerSeparator) ||
		strings.Contains(text, MarkerRemote)
}

// FirstMarkerLine returns the 1-based line of the first conflict marker
func FirstMarkerLine(text string) (int, bool) {
	for i, line := range strings.Split(text, "\n") {
		if strings.Contains(line, MarkerCurrent) ||
			strings.Contains(line, MarkerSeparator) ||
			strings.Contains(line, MarkerRemote) {
			return i + 1, true
		}
	}
	return 0, false
}

// Side selects which half of a conflict to keep
type Side int

const (
	KeepCurrent Side = iota
	KeepRemote
)

// Resolve replaces every conflict region with one of its halves. Marker lines
// may be indented or end in \r; kept lines are left untouched.
// ok is false when the markers are unbalanced or a marker sits inside a line;
// text is then returned as is.
func Resolve(text string, keep Side) (string, bool) {
	const (
		outside = iota
		inCurrent
		inRemote
	)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	state := outside
	for _, line := range lines {
		marker := strings.TrimSpace(line)
		switch {
		case marker == MarkerCurrent:
			if state != outside {
				return text, false
			}
			state = inCurrent
		case marker == MarkerSeparator && state == inCurrent:
			state = inRemote
		case marker == MarkerRemote:
			if state != inRemote {
				return text, false
			}
			state = outside
		case state == inCurrent:
			if keep == KeepCurrent {
				out = append(out, line)
			}
		case state == inRemote:
			if keep == KeepRemote {
				out = append(out, line)
			}
		default:
			out = append(out, line)
		}
	}
	if state != outside {
		return text, false
	}
	resolved := strings.Join(out, "\n")
	if HasConflictMarkers(resolved) {
		return text, false
	}
	return resolved, true
}

// UnifiedDiff renders a unified diff from local to remote for preview
func UnifiedDiff(local, remote string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(local),
		B:        difflib.SplitLines(remote),
		FromFile: "Current",
		ToFile:   "Remote Changes",
		Context:  3,
	})
}
