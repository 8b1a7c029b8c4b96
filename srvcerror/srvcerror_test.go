package srvcerror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/programme-lv/judgeworker/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesByCode(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("load submission: %w",
		srvcerror.New("not_found", "submission not found").SetDebug(cause))

	require.ErrorIs(t, err, srvcerror.New("not_found", "other message"))
	require.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, srvcerror.New("engine_error", "")))

	assert.Equal(t, "not_found", srvcerror.Code(err))
	assert.True(t, srvcerror.HasCode(err, "not_found"))
	assert.False(t, srvcerror.HasCode(err, "engine_error"))
	assert.Equal(t, "load submission: submission not found: connection reset", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, srvcerror.ErrCodeInternal, srvcerror.Code(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, srvcerror.ErrInternal().HttpStatusCode())
	assert.Equal(t, http.StatusInternalServerError, srvcerror.New("x", "y").HttpStatusCode())
}
