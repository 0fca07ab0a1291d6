package submission

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmissionNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^DOC-[0-9A-Z]{6}-\d{6}$`)
	for i := 0; i < 100; i++ {
		require.Regexp(t, pattern, NewSubmissionNumber())
	}
}

func TestSubmissionNumberCollisionRate(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		num := NewSubmissionNumber()
		if _, ok := seen[num]; ok {
			t.Fatalf("编号重复: %s", num)
		}
		seen[num] = struct{}{}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	require.True(t, StatusCompleted.IsTerminal())
	require.True(t, StatusRejected.IsTerminal())
	require.False(t, StatusDraft.IsTerminal())
	require.False(t, StatusSubmitted.IsTerminal())
	require.False(t, StatusPendingApproval.IsTerminal())
}

func TestCallerDisplayName(t *testing.T) {
	require.Equal(t, "Alice", Caller{ID: "u-1", Name: "Alice"}.DisplayName())
	require.Equal(t, "u-1", Caller{ID: "u-1"}.DisplayName())
}
