package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessgame-go/internal/model"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", model.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound},
		{"full", model.ErrGameFull, http.StatusConflict, CodeGameFull},
		{"bad user", model.ErrInvalidUserID, http.StatusBadRequest, CodeInvalidUser},
		{"wrapped store failure", fmt.Errorf("%w: dial tcp", model.ErrStoreUnavailable), http.StatusServiceUnavailable, CodeStoreUnavailable},
		{"explicit bad request", NewInvalidRequestError("owner_user_id required"), http.StatusBadRequest, CodeInvalidRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("pq: password authentication failed for user chess"))
	assert.NotContains(t, rr.Body.String(), "password")
}
