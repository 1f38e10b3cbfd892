// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the five lookup pipelines over HTTP. Every completed
// pipeline run returns 200, including "not found" runs; 4xx is reserved for
// malformed requests and 5xx for transport or configuration failures.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/parts-engine/internal/pipeline"
	"github.com/pdiddy/parts-engine/internal/resolver"
	"github.com/pdiddy/parts-engine/pkg/types"
)

// PartResolver runs full part resolution.
type PartResolver interface {
	Resolve(ctx context.Context, q types.Query, opts resolver.Options) resolver.Response
}

// Pipeline runs single-domain find and rank flows.
type Pipeline interface {
	Find(ctx context.Context, q types.Query, d pipeline.Descriptor) types.Resolution
	Rank(ctx context.Context, q types.Query, d pipeline.Descriptor) types.Ranking
}

// Domains carries the prebuilt descriptors for the non-part endpoints.
type Domains struct {
	Supplier pipeline.Descriptor
	Manual   pipeline.Descriptor
	Provider pipeline.Descriptor
	Image    pipeline.Descriptor
}

// Server is the HTTP surface.
type Server struct {
	resolver PartResolver
	pipe     Pipeline
	domains  Domains
	cfg      types.ServerConfig
	router   chi.Router
}

// New assembles the router.
func New(res PartResolver, pipe Pipeline, domains Domains, cfg types.ServerConfig) *Server {
	s := &Server{resolver: res, pipe: pipe, domains: domains, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)
	r.Post("/resolve", s.handleResolve)
	r.Post("/suppliers", s.handleSuppliers)
	r.Post("/manuals", s.handleManuals)
	r.Post("/providers", s.handleProviders)
	r.Post("/image", s.handleImage)

	s.router = r
	return s
}

// Handler returns the assembled router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving on the configured address.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.Addr, s.router)
}

// cors applies the configured origin allowlist. "*" allows any origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type resolveRequest struct {
	Description     string `json:"description"`
	Make            string `json:"make"`
	Model           string `json:"model"`
	Year            string `json:"year"`
	UseDatabase     *bool  `json:"use_database"`
	UseWebSearch    *bool  `json:"use_web_search"`
	UseManualSearch *bool  `json:"use_manual_search"`
	BypassCache     bool   `json:"bypass_cache"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decode(w, r, &req) {
		return
	}
	q := types.Query{
		Description: req.Description,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Domain:      types.DomainPart,
		BypassCache: req.BypassCache,
	}
	// Part resolution needs a part description; make+model alone is not a
	// resolvable subject.
	if strings.TrimSpace(req.Description) == "" {
		badRequest(w, "description is required")
		return
	}
	resp := s.resolver.Resolve(r.Context(), q, resolver.Options{
		SkipDatabase:     disabled(req.UseDatabase),
		SkipWebSearch:    disabled(req.UseWebSearch),
		SkipManualSearch: disabled(req.UseManualSearch),
	})
	writeJSON(w, http.StatusOK, resp)
}

type supplierRequest struct {
	PartNumber  string `json:"part_number"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Location    string `json:"location"`
	BypassCache bool   `json:"bypass_cache"`
}

func (s *Server) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if !decode(w, r, &req) {
		return
	}
	q := types.Query{
		Description: req.Description,
		PartNumber:  req.PartNumber,
		Make:        req.Make,
		Location:    req.Location,
		Domain:      types.DomainSupplier,
		BypassCache: req.BypassCache,
	}
	if q.IsEmpty() {
		badRequest(w, "part_number or description is required")
		return
	}
	writeJSON(w, http.StatusOK, s.pipe.Find(r.Context(), q, s.domains.Supplier))
}

type manualRequest struct {
	Make        string `json:"make"`
	Model       string `json:"model"`
	ManualType  string `json:"manual_type"`
	BypassCache bool   `json:"bypass_cache"`
}

func (s *Server) handleManuals(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if !decode(w, r, &req) {
		return
	}
	q := types.Query{
		Make:        req.Make,
		Model:       req.Model,
		ManualType:  req.ManualType,
		Domain:      types.DomainManual,
		BypassCache: req.BypassCache,
	}
	if q.IsEmpty() {
		badRequest(w, "make and model are required")
		return
	}
	writeJSON(w, http.StatusOK, s.pipe.Rank(r.Context(), q, s.domains.Manual))
}

type providerRequest struct {
	Make        string `json:"make"`
	Model       string `json:"model"`
	ServiceType string `json:"service_type"`
	Location    string `json:"location"`
	BypassCache bool   `json:"bypass_cache"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if !decode(w, r, &req) {
		return
	}
	q := types.Query{
		Make:        req.Make,
		Model:       req.Model,
		ServiceType: req.ServiceType,
		Location:    req.Location,
		Domain:      types.DomainServiceProvider,
		BypassCache: req.BypassCache,
	}
	if q.IsEmpty() {
		badRequest(w, "make and model are required")
		return
	}
	writeJSON(w, http.StatusOK, s.pipe.Rank(r.Context(), q, s.domains.Provider))
}

type imageRequest struct {
	PartNumber  string `json:"part_number"`
	Description string `json:"description"`
	Make        string `json:"make"`
	BypassCache bool   `json:"bypass_cache"`
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decode(w, r, &req) {
		return
	}
	q := types.Query{
		Description: req.Description,
		PartNumber:  req.PartNumber,
		Make:        req.Make,
		Domain:      types.DomainImage,
		BypassCache: req.BypassCache,
	}
	if q.IsEmpty() {
		badRequest(w, "part_number or description is required")
		return
	}
	writeJSON(w, http.StatusOK, s.pipe.Find(r.Context(), q, s.domains.Image))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// disabled interprets an optional use_* flag: absent means enabled.
func disabled(flag *bool) bool {
	return flag != nil && !*flag
}
