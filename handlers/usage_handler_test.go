package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageStatsHandler(t *testing.T) {
	t.Run("serves the daily projection", func(t *testing.T) {
		deps, mock := newTestDeps(t)

		mock.ExpectQuery(`SELECT\s+TO_CHAR`).
			WillReturnRows(sqlmock.NewRows([]string{"date", "total_tokens_in", "total_tokens_out", "total_cost"}).
				AddRow("2026-08-27", 1500, 700, 6.2))

		req := httptest.NewRequest(http.MethodGet, "/admin/usage", nil)
		rec := httptest.NewRecorder()
		UsageStatsHandler(deps)(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "2026-08-27")
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		deps, _ := newTestDeps(t)

		req := httptest.NewRequest(http.MethodGet, "/admin/usage?from=yesterday", nil)
		rec := httptest.NewRecorder()
		UsageStatsHandler(deps)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a non-numeric filter id", func(t *testing.T) {
		deps, _ := newTestDeps(t)

		req := httptest.NewRequest(http.MethodGet, "/admin/usage?identity_id=bob", nil)
		rec := httptest.NewRecorder()
		UsageStatsHandler(deps)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestParseUsageFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/admin/usage?from=2026-08-01&to=2026-08-28&identity_id=7&agent_id=1&model_id=10", nil)

	filter, err := parseUsageFilter(req)
	require.NoError(t, err)

	require.NotNil(t, filter.From)
	assert.Equal(t, "2026-08-01", filter.From.Format(dateLayout))
	require.NotNil(t, filter.To)
	require.NotNil(t, filter.IdentityID)
	assert.Equal(t, int64(7), *filter.IdentityID)
	require.NotNil(t, filter.AgentID)
	assert.Equal(t, int64(1), *filter.AgentID)
	require.NotNil(t, filter.ModelID)
	assert.Equal(t, int64(10), *filter.ModelID)
}

func TestParseUsageFilterEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/usage", nil)

	filter, err := parseUsageFilter(req)
	require.NoError(t, err)
	assert.Nil(t, filter.From)
	assert.Nil(t, filter.To)
	assert.Nil(t, filter.IdentityID)
}

func TestAcknowledgeNotificationHandler(t *testing.T) {
	newRouter := func(h http.HandlerFunc) *chi.Mux {
		r := chi.NewRouter()
		r.Post("/admin/notifications/{id}/ack", h)
		return r
	}

	t.Run("acknowledges", func(t *testing.T) {
		deps, mock := newTestDeps(t)

		mock.ExpectExec("UPDATE credit_notifications").
			WithArgs(int64(12)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := httptest.NewRequest(http.MethodPost, "/admin/notifications/12/ack", nil)
		rec := httptest.NewRecorder()
		newRouter(AcknowledgeNotificationHandler(deps)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("already acknowledged is not found", func(t *testing.T) {
		deps, mock := newTestDeps(t)

		mock.ExpectExec("UPDATE credit_notifications").
			WithArgs(int64(12)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		req := httptest.NewRequest(http.MethodPost, "/admin/notifications/12/ack", nil)
		rec := httptest.NewRecorder()
		newRouter(AcknowledgeNotificationHandler(deps)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("rejects a non-numeric id", func(t *testing.T) {
		deps, _ := newTestDeps(t)

		req := httptest.NewRequest(http.MethodPost, "/admin/notifications/abc/ack", nil)
		rec := httptest.NewRecorder()
		newRouter(AcknowledgeNotificationHandler(deps)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
