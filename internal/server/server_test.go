// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/parts-engine/internal/pipeline"
	"github.com/pdiddy/parts-engine/internal/resolver"
	"github.com/pdiddy/parts-engine/pkg/types"
)

type stubResolver struct {
	resp     resolver.Response
	lastQ    types.Query
	lastOpts resolver.Options
}

func (s *stubResolver) Resolve(_ context.Context, q types.Query, opts resolver.Options) resolver.Response {
	s.lastQ = q
	s.lastOpts = opts
	s.resp.Query = q
	return s.resp
}

type stubPipeline struct {
	resolution types.Resolution
	ranking    types.Ranking
	lastQ      types.Query
}

func (s *stubPipeline) Find(_ context.Context, q types.Query, _ pipeline.Descriptor) types.Resolution {
	s.lastQ = q
	s.resolution.Query = q
	return s.resolution
}

func (s *stubPipeline) Rank(_ context.Context, q types.Query, _ pipeline.Descriptor) types.Ranking {
	s.lastQ = q
	s.ranking.Query = q
	return s.ranking
}

func testServer(res *stubResolver, pipe *stubPipeline) *Server {
	return New(res, pipe, Domains{
		Supplier: pipeline.SupplierDomain(),
		Manual:   pipeline.ManualDomain(),
		Provider: pipeline.ProviderDomain(nil),
		Image:    pipeline.ImageDomain(),
	}, types.ServerConfig{Addr: ":0", AllowedOrigins: []string{"*"}})
}

func post(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestResolveEndpoint(t *testing.T) {
	res := &stubResolver{resp: resolver.Response{Success: true}}
	s := testServer(res, &stubPipeline{})

	rec := post(t, s, "/resolve", map[string]any{
		"description": "door seal", "make": "Henny Penny", "model": "500",
		"use_database": false, "bypass_cache": true,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "door seal", res.lastQ.Description)
	assert.Equal(t, types.DomainPart, res.lastQ.Domain)
	assert.True(t, res.lastQ.BypassCache)
	assert.True(t, res.lastOpts.SkipDatabase)
	assert.False(t, res.lastOpts.SkipWebSearch, "absent use_web_search means enabled")

	var body resolver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
}

// "Not found" is a completed run: 200, success=false.
func TestResolveNotFoundIs200(t *testing.T) {
	res := &stubResolver{resp: resolver.Response{Success: false, Escalated: true}}
	s := testServer(res, &stubPipeline{})

	rec := post(t, s, "/resolve", map[string]any{"description": "unobtainium bracket"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body resolver.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.True(t, body.Escalated)
}

func TestResolveEmptyQueryRejected(t *testing.T) {
	s := testServer(&stubResolver{}, &stubPipeline{})
	rec := post(t, s, "/resolve", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Make and model without a description name the equipment but not a part;
// resolution must not start.
func TestResolveMissingDescriptionRejected(t *testing.T) {
	res := &stubResolver{}
	s := testServer(res, &stubPipeline{})
	rec := post(t, s, "/resolve", map[string]any{"make": "Hobart", "model": "A200"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, res.lastQ.Make, "resolver ran for a description-less request")
}

func TestResolveMalformedBody(t *testing.T) {
	s := testServer(&stubResolver{}, &stubPipeline{})
	req := httptest.NewRequest(http.MethodPost, "/resolve", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuppliersEndpoint(t *testing.T) {
	pipe := &stubPipeline{resolution: types.Resolution{Success: true}}
	s := testServer(&stubResolver{}, pipe)

	rec := post(t, s, "/suppliers", map[string]any{
		"part_number": "77560", "make": "Henny Penny", "location": "Chicago",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.DomainSupplier, pipe.lastQ.Domain)
	assert.Equal(t, "Chicago", pipe.lastQ.Location)
}

func TestManualsEndpoint(t *testing.T) {
	pipe := &stubPipeline{ranking: types.Ranking{Success: true}}
	s := testServer(&stubResolver{}, pipe)

	rec := post(t, s, "/manuals", map[string]any{
		"make": "Hobart", "model": "A200", "manual_type": "parts manual",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.DomainManual, pipe.lastQ.Domain)
	assert.Equal(t, "parts manual", pipe.lastQ.ManualType)
}

func TestProvidersEndpoint(t *testing.T) {
	pipe := &stubPipeline{ranking: types.Ranking{Success: true}}
	s := testServer(&stubResolver{}, pipe)

	rec := post(t, s, "/providers", map[string]any{
		"make": "Hobart", "model": "A200", "service_type": "maintenance",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.DomainServiceProvider, pipe.lastQ.Domain)
	assert.Equal(t, "maintenance", pipe.lastQ.ServiceType)
}

func TestImageEndpoint(t *testing.T) {
	pipe := &stubPipeline{resolution: types.Resolution{Success: true}}
	s := testServer(&stubResolver{}, pipe)

	rec := post(t, s, "/image", map[string]any{"part_number": "77560", "make": "Henny Penny"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.DomainImage, pipe.lastQ.Domain)
}

func TestHealthz(t *testing.T) {
	s := testServer(&stubResolver{}, &stubPipeline{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	s := New(&stubResolver{}, &stubPipeline{}, Domains{},
		types.ServerConfig{AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/resolve", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	// Unlisted origins get no CORS headers.
	req = httptest.NewRequest(http.MethodOptions, "/resolve", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
