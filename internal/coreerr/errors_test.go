package coreerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesUnderlyingError(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(ExtractorFailure, "extraction threw", base)

	require.True(t, errors.Is(wrapped, base), "expected errors.Is to find base error")
	require.True(t, Is(wrapped, ExtractorFailure))
}

func TestKindOf(t *testing.T) {
	err := NotFoundf("lot %s not found", "lot_1")
	wrapped := fmt.Errorf("lookup failed: %w", err)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	require.Equal(t, NotFound, kind)

	_, ok = KindOf(errors.New("plain"))
	require.False(t, ok, "expected plain error to not carry a Kind")
}

func TestInvalidSingleIssueMessage(t *testing.T) {
	err := Invalid(Issue{Path: "items", Message: "items must be non-empty"})
	require.Equal(t, "items must be non-empty", err.Message)
	require.Len(t, err.Issues, 1)
}
