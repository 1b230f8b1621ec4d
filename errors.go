package surgeguard

import "errors"

var (
	// ErrDegenerateStats is returned when a mean/stdev computation is
	// attempted over zero elements (an empty bucket or an empty window).
	// Call sites guard against it; seeing it surface means an invariant
	// was violated, not that the input was merely unusual.
	ErrDegenerateStats = errors.New("statistics over zero elements")
)
