package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrUnknownCriterion, `criterion "Sleeping" not in STUDENT catalog`)
	assert.True(t, stderrors.Is(err, ErrUnknownCriterion))
	assert.False(t, stderrors.Is(err, ErrNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
}

func TestStorageWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := Storage(cause, "append", "conduct_events")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "conduct_events")
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("outer: %w", ErrForbidden)
	assert.Equal(t, ErrForbidden.Code, FromError(wrapped).Code)
}
