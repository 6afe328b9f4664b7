package explain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKind_MatchesThroughWrapping(t *testing.T) {
	inner := NewError(FailMissingCredential, "no API key is configured")
	wrapped := fmt.Errorf("handling request: %w", inner)

	assert.True(t, IsKind(wrapped, FailMissingCredential))
	assert.False(t, IsKind(wrapped, FailNetwork))
	assert.False(t, IsKind(errors.New("plain"), FailMissingCredential))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(FailNetwork, "stream request failed", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "NetworkFailure")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReason_ShortensToMessage(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "model declined", Reason(NewError(FailRefusal, "model declined")))
	assert.Equal(t, "stream read failed: boom",
		Reason(WrapError(FailNetwork, "stream read failed", errors.New("boom"))))
	assert.Equal(t, "plain failure", Reason(errors.New("plain failure")))
}

func TestFailureKind_Names(t *testing.T) {
	assert.Equal(t, "EmptyResult", FailEmptyResult.String())
	assert.Equal(t, "StreamIncomplete", FailStreamIncomplete.String())
	assert.Equal(t, "Unknown", FailUnknown.String())
}
