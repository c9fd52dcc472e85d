package server

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/polarisnav/polaris/internal/catalog"
	"github.com/polarisnav/polaris/internal/recommend"
	"github.com/polarisnav/polaris/internal/resolve"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	minRoleRunes = 2
	maxRoleRunes = 100
)

type inferRequest struct {
	Role string `json:"role"`
}

func (s *Server) inferIndustry(c *gin.Context) {
	var req inferRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field: role"})
		return
	}

	normalized := catalog.Normalize(req.Role)
	if utf8.RuneCountInString(normalized) < minRoleRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role name too short"})
		return
	}
	if utf8.RuneCountInString(normalized) > maxRoleRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role name too long"})
		return
	}

	resolution, err := s.deps.Resolver.Resolve(c.Request.Context(), req.Role)
	if err != nil {
		if errors.Is(err, resolve.ErrUnresolved) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "could not identify role, please enter a specific job title",
			})
			return
		}
		s.deps.Logger.Error("role resolution failed", zap.String("role", req.Role), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, resolution)
}

type mapRolesRequest struct {
	CurrentRole string           `json:"current_role"`
	Metrics     *catalog.Metrics `json:"metrics"`
}

func (s *Server) mapRoles(c *gin.Context) {
	var req mapRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result := s.deps.Engine.Recommend(recommend.Request{
		CurrentRole: req.CurrentRole,
		Metrics:     req.Metrics,
		Count:       recommend.DefaultCount,
	})

	c.JSON(http.StatusOK, result)
}

type rolePagesRequest struct {
	CurrentRole string          `json:"current_role"`
	Metrics     catalog.Metrics `json:"metrics"`
	UserSkills  []string        `json:"user_skills"`
}

func (s *Server) rolePages(c *gin.Context) {
	if s.deps.Advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI advisor is not configured"})
		return
	}

	role := c.Param("name")

	var req rolePagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pages, err := s.deps.Advisor.GenerateRolePages(c.Request.Context(), role, req.CurrentRole, req.Metrics, req.UserSkills)
	if err != nil {
		s.deps.Logger.Error("generating role pages failed", zap.String("role", role), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, pages)
}

type suggestSkillsRequest struct {
	Role string `json:"role"`
}

func (s *Server) suggestSkills(c *gin.Context) {
	if s.deps.Advisor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI advisor is not configured"})
		return
	}

	var req suggestSkillsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field: role"})
		return
	}

	suggestion, err := s.deps.Advisor.SuggestSkills(c.Request.Context(), req.Role)
	if err != nil {
		s.deps.Logger.Error("suggesting skills failed", zap.String("role", req.Role), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) healthDetailed(c *gin.Context) {
	status := "healthy"
	components := gin.H{}

	catalogStatus := gin.H{
		"status":           "healthy",
		"roles_count":      s.deps.Catalog.Len(),
		"normalized_count": s.deps.Catalog.NormalizedLen(),
		"overlap_count":    s.deps.Index.Len(),
	}
	if s.deps.Catalog.Len() == 0 {
		catalogStatus["status"] = "unhealthy"
		status = "degraded"
	}
	components["role_catalog"] = catalogStatus

	if s.deps.Advisor != nil {
		components["ai_advisor"] = gin.H{"status": "healthy"}
	} else {
		components["ai_advisor"] = gin.H{"status": "disabled"}
	}

	components["resolver"] = s.deps.Resolver.Describe()

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{"status": status, "components": components})
}
