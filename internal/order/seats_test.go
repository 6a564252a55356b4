package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictsOverlap(t *testing.T) {
	taken := map[string]struct{}{"A2": {}, "B1": {}}

	got := Conflicts([]string{"A1", "A2", "A3", "B1"}, taken)
	assert.Equal(t, []string{"A2", "B1"}, got)
}

func TestConflictsNoOverlap(t *testing.T) {
	taken := map[string]struct{}{"C4": {}}

	assert.Empty(t, Conflicts([]string{"A1", "A2"}, taken))
	assert.Empty(t, Conflicts([]string{"A1"}, nil))
	assert.Empty(t, Conflicts(nil, taken))
}

func TestConflictsEveryRequestedSeatTaken(t *testing.T) {
	// Exact boundary: the request equals the held set, so the whole batch
	// conflicts.
	taken := map[string]struct{}{"A1": {}, "A2": {}, "A3": {}}

	got := Conflicts([]string{"A1", "A2", "A3"}, taken)
	assert.Equal(t, []string{"A1", "A2", "A3"}, got)
}
