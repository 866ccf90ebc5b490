package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/agent-gateway/services"
	"github.com/upb/agent-gateway/utils"
)

// expectTriageAuthorization covers the lookups for an authorized triage
// request on the secured tier. The content gate is skipped for the triage
// agent, so no pattern query follows.
func expectTriageAuthorization(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM agents").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "active"}).
			AddRow(2, "agent-triage", "", true))
	mock.ExpectQuery(`(?s)FROM ai_models.*WHERE name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "provider", "price_input", "price_output", "tier_id", "active"}).
			AddRow(10, "gpt-4.1-mini", "openai", 0.002, 0.004, 100, true))
	mock.ExpectQuery("FROM security_tiers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(100, "api_key"))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
}

func TestTriageInfoDefaultsWhenUnavailable(t *testing.T) {
	deps, mock := newTestDeps(t)
	expectTriageAuthorization(mock)

	// No action given, so "info" is assumed
	body := `{"metadata": {"agent": "agent-triage"}}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	QueryHandler(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TriageStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Running)
	assert.NotEmpty(t, resp.Error)
}

func TestTriageQueryFallsBackWhenUnavailable(t *testing.T) {
	deps, mock := newTestDeps(t)
	expectTriageAuthorization(mock)

	// ValidateTriagePayload loads the triage patterns; none configured
	mock.ExpectQuery(`SELECT p.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "agent_id", "tier_id", "rule", "description", "active"}))

	body := `{"prompt": "classify this", "action": "query", "metadata": {"agent": "agent-triage"}}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	QueryHandler(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TriageQueryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.Contains(t, resp.Message, "temporarily unavailable")
}

func TestTriageQueryRequiresPrompt(t *testing.T) {
	deps, mock := newTestDeps(t)
	expectTriageAuthorization(mock)

	body := `{"action": "query", "metadata": {"agent": "agent-triage"}}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	QueryHandler(deps)(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, services.ReasonMissingFields, errResp.Reason)
}

func TestTriageUnknownAction(t *testing.T) {
	deps, mock := newTestDeps(t)
	expectTriageAuthorization(mock)

	body := `{"action": "restart", "metadata": {"agent": "agent-triage"}}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	QueryHandler(deps)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageRejectedOnUnsecuredTier(t *testing.T) {
	deps, mock := newTestDeps(t)

	mock.ExpectQuery("FROM agents").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "active"}).
			AddRow(2, "agent-triage", "", true))
	mock.ExpectQuery(`(?s)FROM ai_models.*WHERE name`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "provider", "price_input", "price_output", "tier_id", "active"}).
			AddRow(11, "gpt-4o-mini", "openai", 0.001, 0.002, 101, true))
	mock.ExpectQuery("FROM security_tiers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(101, "oauth"))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	body := `{"prompt": "x", "metadata": {"agent": "agent-triage", "tier": "unsecured"}}`
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	QueryHandler(deps)(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, services.ReasonTierNotAllowed, errResp.Reason)
}
