package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/polarisnav/polaris/internal/ai"
	"github.com/polarisnav/polaris/internal/catalog"
	"github.com/polarisnav/polaris/internal/recommend"
	"github.com/polarisnav/polaris/internal/resolve"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAdvisor struct {
	pages      *ai.RolePages
	suggestion *ai.SkillSuggestion
}

func (s *stubAdvisor) GenerateRolePages(_ context.Context, role, _ string, _ catalog.Metrics, _ []string) (*ai.RolePages, error) {
	if s.pages != nil {
		return s.pages, nil
	}
	return &ai.RolePages{Pages: []ai.Page{{Type: ai.PageOverview, Description: role}}}, nil
}

func (s *stubAdvisor) SuggestSkills(_ context.Context, role string) (*ai.SkillSuggestion, error) {
	if s.suggestion != nil {
		return s.suggestion, nil
	}
	return &ai.SkillSuggestion{Role: role, Skills: []string{"Python", "SQL"}}, nil
}

func testServer(t *testing.T, advisor ai.ContentGenerator) *Server {
	t.Helper()

	roles := make([]catalog.Role, 0, 30)
	roles = append(roles, catalog.Role{
		Name:    "Software Engineer",
		Metrics: catalog.Metrics{Technical: 9, Creative: 7, Business: 7, Customer: 5},
	})
	for i := 2; i <= 30; i++ {
		roles = append(roles, catalog.Role{
			Name: fmt.Sprintf("Role %d", i),
			Metrics: catalog.Metrics{
				Technical: 1 + i%10,
				Creative:  1 + (i*3)%10,
				Business:  1 + (i*7)%10,
				Customer:  1 + (i*5)%10,
			},
		})
	}

	cat, err := catalog.New(roles)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	idx := catalog.BuildIndex(cat)

	log := zap.NewNop()
	deps := Deps{
		Catalog:  cat,
		Index:    idx,
		Engine:   recommend.New(cat, idx, rand.New(rand.NewSource(1)), log),
		Resolver: resolve.NewChain(cat, nil, log),
		Advisor:  advisor,
		Logger:   log,
	}

	return New(Config{}, deps)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestInferIndustryExactMatch(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/infer-industry", `{"role": "  software ENGINEER "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Role       string  `json:"role"`
		Industry   string  `json:"industry"`
		Confidence float64 `json:"confidence"`
		Source     string  `json:"source"`
		Technical  int     `json:"technical"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Role != "Software Engineer" {
		t.Fatalf("unexpected role: %q", resp.Role)
	}
	if resp.Industry != "Technology" {
		t.Fatalf("unexpected industry: %q", resp.Industry)
	}
	if resp.Source != "database" || resp.Confidence != 1.0 {
		t.Fatalf("unexpected source/confidence: %q/%v", resp.Source, resp.Confidence)
	}
	if resp.Technical != 9 {
		t.Fatalf("expected flat metrics in response, got technical=%d", resp.Technical)
	}
}

func TestInferIndustryFuzzyMatch(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/infer-industry", `{"role": "Softwares Engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Role          string `json:"role"`
		Source        string `json:"source"`
		OriginalInput string `json:"original_input"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Role != "Software Engineer" || resp.Source != "fuzzy_match" {
		t.Fatalf("unexpected role/source: %q/%q", resp.Role, resp.Source)
	}
	if resp.OriginalInput != "Softwares Engineer" {
		t.Fatalf("expected original input echoed, got %q", resp.OriginalInput)
	}
}

func TestInferIndustryValidation(t *testing.T) {
	s := testServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing role", body: `{}`},
		{name: "empty body", body: ``},
		{name: "too short", body: `{"role": "a"}`},
		{name: "too long", body: `{"role": "` + strings.Repeat("x", 101) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/infer-industry", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestInferIndustryUnknownRole(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/infer-industry", `{"role": "Quantum Plumber"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestMapRolesUnpersonalized(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/map/roles", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var result recommend.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if result.Personalized {
		t.Fatal("expected unpersonalized result")
	}
	if len(result.Roles) != recommend.DefaultCount {
		t.Fatalf("expected %d roles, got %d", recommend.DefaultCount, len(result.Roles))
	}
}

func TestMapRolesPersonalized(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/map/roles", `{"current_role": "Software Engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var result recommend.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if !result.Personalized {
		t.Fatal("expected personalized result")
	}
	if result.CurrentRole != "Software Engineer" {
		t.Fatalf("unexpected current role: %q", result.CurrentRole)
	}
	for _, role := range result.Roles {
		if role.Name == "Software Engineer" {
			t.Fatal("current role must not be recommended")
		}
	}
}

func TestRolePagesWithoutAdvisor(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/role/Data%20Scientist/pages", `{"current_role": "QA Engineer"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRolePagesWithAdvisor(t *testing.T) {
	s := testServer(t, &stubAdvisor{})

	rec := doJSON(t, s, http.MethodPost, "/api/role/Data%20Scientist/pages", `{"current_role": "QA Engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var pages ai.RolePages
	if err := json.Unmarshal(rec.Body.Bytes(), &pages); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(pages.Pages) == 0 {
		t.Fatal("expected pages in response")
	}
	if pages.Pages[0].Description != "Data Scientist" {
		t.Fatalf("expected role passed from path, got %q", pages.Pages[0].Description)
	}
}

func TestSuggestSkills(t *testing.T) {
	s := testServer(t, &stubAdvisor{})

	rec := doJSON(t, s, http.MethodPost, "/api/suggest-skills", `{"role": "Software Engineer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var suggestion ai.SkillSuggestion
	if err := json.Unmarshal(rec.Body.Bytes(), &suggestion); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if suggestion.Role != "Software Engineer" || len(suggestion.Skills) == 0 {
		t.Fatalf("unexpected suggestion: %+v", suggestion)
	}
}

func TestSuggestSkillsMissingRole(t *testing.T) {
	s := testServer(t, &stubAdvisor{})

	rec := doJSON(t, s, http.MethodPost, "/api/suggest-skills", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := testServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Fatalf("unexpected status: %q", resp.Status)
	}
}

func TestHealthDetailed(t *testing.T) {
	s := testServer(t, &stubAdvisor{})

	rec := doJSON(t, s, http.MethodGet, "/health/detailed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status     string `json:"status"`
		Components struct {
			RoleCatalog struct {
				Status     string `json:"status"`
				RolesCount int    `json:"roles_count"`
			} `json:"role_catalog"`
			AIAdvisor struct {
				Status string `json:"status"`
			} `json:"ai_advisor"`
		} `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Fatalf("unexpected status: %q", resp.Status)
	}
	if resp.Components.RoleCatalog.RolesCount != 30 {
		t.Fatalf("unexpected roles count: %d", resp.Components.RoleCatalog.RolesCount)
	}
	if resp.Components.AIAdvisor.Status != "healthy" {
		t.Fatalf("unexpected advisor status: %q", resp.Components.AIAdvisor.Status)
	}
}

func TestHealthDetailedDegradedOnEmptyCatalog(t *testing.T) {
	cat := catalog.Empty()
	idx := catalog.BuildIndex(cat)
	log := zap.NewNop()

	s := New(Config{}, Deps{
		Catalog:  cat,
		Index:    idx,
		Engine:   recommend.New(cat, idx, rand.New(rand.NewSource(1)), log),
		Resolver: resolve.NewChain(cat, nil, log),
		Logger:   log,
	})

	rec := doJSON(t, s, http.MethodGet, "/health/detailed", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	log := zap.NewNop()
	cat := catalog.Empty()
	idx := catalog.BuildIndex(cat)

	s := New(Config{RateLimitRPS: 1}, Deps{
		Catalog:  cat,
		Index:    idx,
		Engine:   recommend.New(cat, idx, rand.New(rand.NewSource(1)), log),
		Resolver: resolve.NewChain(cat, nil, log),
		Logger:   log,
	})

	// Burst is rps*2, so the third request from the same client trips it.
	var last int
	for i := 0; i < 3; i++ {
		rec := doJSON(t, s, http.MethodPost, "/api/map/roles", `{}`)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", last)
	}
}
