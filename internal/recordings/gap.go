package recordings

import "time"

// Boundary classifies the seam between two consecutive segments.
type Boundary int

const (
	// Discontinuous means the decoder must reset before the next segment.
	Discontinuous Boundary = iota
	// Continuous means the next segment starts where the previous one ended.
	Continuous
)

func (b Boundary) String() string {
	if b == Continuous {
		return "continuous"
	}
	return "discontinuous"
}

// GapAnalyzer classifies adjacency between segments ordered by created_at.
// The zero value uses a tolerance of zero: any gap at all is a discontinuity.
type GapAnalyzer struct {
	Tolerance time.Duration
}

// Classify compares next against the nominal end of prev.
func (g GapAnalyzer) Classify(prev, next Entry) Boundary {
	if g.Follows(prev.End(), next) {
		return Continuous
	}
	return Discontinuous
}

// Follows reports whether next starts no later than end plus the tolerance.
func (g GapAnalyzer) Follows(end time.Time, next Entry) bool {
	return next.Start().Sub(end) <= g.Tolerance
}

// Boundaries returns one classification per entry: element i describes the
// seam before entries[i]. The seam before the first entry has no predecessor
// and is always Discontinuous.
func (g GapAnalyzer) Boundaries(entries []Entry) []Boundary {
	out := make([]Boundary, len(entries))
	for i := range entries {
		if i == 0 {
			out[i] = Discontinuous
			continue
		}
		out[i] = g.Classify(entries[i-1], entries[i])
	}
	return out
}
