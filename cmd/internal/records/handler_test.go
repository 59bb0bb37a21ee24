package records

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadadmin/cmd/internal/auth/guard"
	"leadadmin/cmd/internal/auth/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	lastQuery Query
	err       error
}

func (f *fakeRepo) ListCompanies(_ context.Context, q Query) (Page[Company], error) {
	f.lastQuery = q
	if f.err != nil {
		return Page[Company]{}, f.err
	}
	return newPage([]Company{{ID: "c1", Name: "Acme"}}, 41, q), nil
}

func (f *fakeRepo) GetCompany(_ context.Context, id string) (CompanyDetail, error) {
	if f.err != nil {
		return CompanyDetail{}, f.err
	}
	return CompanyDetail{Company: Company{ID: id, Name: "Acme"}, LeadCount: 2}, nil
}

func (f *fakeRepo) ListLeads(_ context.Context, q Query) (Page[Lead], error) {
	f.lastQuery = q
	return newPage[Lead](nil, 0, q), f.err
}

func (f *fakeRepo) Totals(context.Context) (Totals, error) {
	return Totals{Companies: 1, Leads: 2, LeadsByStatus: map[string]int64{"new": 2}}, f.err
}

func serve(t *testing.T, repo Repository, path string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), repo)
	mux := http.NewServeMux()
	h.Register(mux)

	p := session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r := httptest.NewRequest(http.MethodGet, path, nil)
	r = r.WithContext(guard.WithPayload(r.Context(), p))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func TestHandler_ListCompanies(t *testing.T) {
	repo := &fakeRepo{}
	w := serve(t, repo, "/dashboard/api/companies?page=3&pageSize=20&industry=saas,fintech")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(41), body["total"])
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Equal(t, float64(3), body["page"])
	assert.Equal(t, float64(20), body["pageSize"])
	assert.Len(t, body["items"], 1)
	assert.Equal(t, []FieldFilter{{Param: "industry", Filter: OneOf{Values: []string{"saas", "fintech"}}}}, repo.lastQuery.Filters)
}

func TestHandler_InvalidQuery(t *testing.T) {
	w := serve(t, &fakeRepo{}, "/dashboard/api/leads?sortBy=secret")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_query")
}

func TestHandler_LeadsEmpty(t *testing.T) {
	w := serve(t, &fakeRepo{}, "/dashboard/api/leads")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"total":0,"page":1,"pageSize":20,"totalPages":0}`, w.Body.String())
}

func TestHandler_GetCompany(t *testing.T) {
	w := serve(t, &fakeRepo{}, "/dashboard/api/companies/01J00000000000000000000001")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"leadCount":2`)

	w = serve(t, &fakeRepo{}, "/dashboard/api/companies/not-a-ulid")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, &fakeRepo{err: OpError{Op: "x", Kind: ErrNotFound}}, "/dashboard/api/companies/01J00000000000000000000001")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_StoreErrors(t *testing.T) {
	w := serve(t, &fakeRepo{err: OpError{Op: "x", Kind: ErrUnavailable, Err: errors.New("conn refused")}}, "/dashboard/api/companies")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "conn refused")

	w = serve(t, nil, "/dashboard/api/leads")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandler_Summary(t *testing.T) {
	w := serve(t, &fakeRepo{}, "/dashboard")
	require.Equal(t, http.StatusOK, w.Code)

	var body summaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ops", body.Identity.Username)
	require.NotNil(t, body.Totals)
	assert.Equal(t, int64(2), body.Totals.Leads)

	w = serve(t, nil, "/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "totals")
}
