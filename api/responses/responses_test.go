package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/commission-engine/pkg/errors"
	"github.com/angelmondragon/commission-engine/pkg/logger"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error
}

func TestWriteSuccessWrapsPayload(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]any{"depositId": 7, "totalCredited": "195.00"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"depositId":7,"totalCredited":"195.00"}}`, w.Body.String())
}

func TestWriteSuccessUnencodablePayload(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, string(pkgerrors.CodeInternal), decodeError(t, w).Code)
}

func TestWriteErrorStatusAndMessage(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		wantDetails bool
	}{
		{
			name:        "validation keeps message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "depositId must be positive").WithDetails(map[string]any{"field": "depositId"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "depositId must be positive",
			wantDetails: true,
		},
		{
			name:    "not found keeps message",
			err:     pkgerrors.New(pkgerrors.CodeNotFound, "deposit 9 not found"),
			status:  http.StatusNotFound,
			code:    pkgerrors.CodeNotFound,
			message: "deposit 9 not found",
		},
		{
			name:    "configuration hides operator detail",
			err:     pkgerrors.New(pkgerrors.CodeConfiguration, "level 4 missing from commission_rates"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeConfiguration,
			message: pkgerrors.MetadataFor(pkgerrors.CodeConfiguration).PublicMessage,
		},
		{
			name:    "untyped becomes internal",
			err:     errors.New("dial tcp: connection refused"),
			status:  http.StatusInternalServerError,
			code:    pkgerrors.CodeInternal,
			message: pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, string(tc.code), body.Code)
			assert.Equal(t, tc.message, body.Message)
			if tc.wantDetails {
				assert.NotNil(t, body.Details)
			}
		})
	}
}

func TestWriteErrorLogLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: &buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeNotFound, "user 3 not found"))
	assert.Contains(t, buf.String(), `"message":"request.rejected"`)
	assert.NotContains(t, buf.String(), "request.error")

	buf.Reset()
	WriteError(context.Background(), logg, httptest.NewRecorder(), errors.New("boom"))
	assert.Contains(t, buf.String(), "request.error")
	assert.Contains(t, buf.String(), "boom")
}
