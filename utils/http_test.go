package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, 200, map[string]string{"key": "value"}))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"key":"value"}`, rec.Body.String())
}

func TestWriteJSONNilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, 204, nil))

	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteOK(rec, map[string]int{"count": 3}))

	assert.Equal(t, 200, rec.Code)

	var body SuccessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotNil(t, body.Data)
}

func TestWriteBadRequestCarriesReasonAndDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteBadRequest(rec, "missing_fields", "prompt is required", map[string]interface{}{
		"prompt": "prompt is required",
	}))

	assert.Equal(t, 400, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "bad_request", body.Error)
	assert.Equal(t, "missing_fields", body.Reason)
	assert.Equal(t, "prompt is required", body.Details["prompt"])
}

func TestWriteForbiddenCarriesReason(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteForbidden(rec, "no_credit", ""))

	assert.Equal(t, 403, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, "no_credit", body.Reason)
	assert.Equal(t, "Access forbidden", body.Message)
}

func TestWriteHelpersDefaultMessages(t *testing.T) {
	cases := []struct {
		name    string
		write   func(rec *httptest.ResponseRecorder) error
		status  int
		errCode string
	}{
		{"unauthorized", func(rec *httptest.ResponseRecorder) error { return WriteUnauthorized(rec, "") }, 401, "unauthorized"},
		{"not found", func(rec *httptest.ResponseRecorder) error { return WriteNotFound(rec, "") }, 404, "not_found"},
		{"bad gateway", func(rec *httptest.ResponseRecorder) error { return WriteBadGateway(rec, "") }, 502, "bad_gateway"},
		{"internal", func(rec *httptest.ResponseRecorder) error { return WriteInternalServerError(rec, "") }, 500, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, tc.write(rec))

			assert.Equal(t, tc.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tc.errCode, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}
