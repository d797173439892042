package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meal-planner/internal/app"
	"meal-planner/internal/calendar"
	"meal-planner/internal/planner"
	"meal-planner/internal/preferences"
	"meal-planner/internal/shopping"
)

type assignRequest struct {
	Date     string `json:"date" binding:"required"`
	Slot     string `json:"slot"`
	RecipeID string `json:"recipeId" binding:"required"`
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type importRequest struct {
	URL string `json:"url" binding:"required"`
}

type gridResponse struct {
	Start string          `json:"start"`
	Cells []calendar.Cell `json:"cells"`
}

type shoppingResponse struct {
	Items  []shopping.Item  `json:"items"`
	Groups []shopping.Group `json:"groups"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"session": s.session.Status(),
	}
	if s.health != nil {
		body["system"] = s.health()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleSuggestions(c *gin.Context) {
	var tags []string
	for _, raw := range c.QueryArray("tags") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": s.session.Suggestions(tags)})
}

func (s *Server) handleRecipe(c *gin.Context) {
	r, ok := s.session.Recipe(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, CodeNotFound, "recipe not found")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) handleImport(c *gin.Context) {
	if s.importer == nil {
		abort(c, http.StatusNotImplemented, CodeInvalidRequest, "importing is not enabled")
		return
	}
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	rec, err := s.importer.ImportRecipe(c.Request.Context(), req.URL)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleTags(c *gin.Context) {
	tags := s.session.Tags()
	if tags == nil {
		tags = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"items": tags})
}

func (s *Server) handleWeek(c *gin.Context) {
	day, ok := s.queryDate(c, "start")
	if !ok {
		return
	}
	cells := s.session.Week(day)
	c.JSON(http.StatusOK, gridResponse{Start: cells[0].Date, Cells: cells})
}

func (s *Server) handleMonth(c *gin.Context) {
	day, ok := s.queryDate(c, "date")
	if !ok {
		return
	}
	cells := s.session.Month(day)
	c.JSON(http.StatusOK, gridResponse{Start: cells[0].Date, Cells: cells})
}

func (s *Server) handleShoppingList(c *gin.Context) {
	items := s.session.ShoppingList()
	groups := shopping.GroupBySection(items)
	if groups == nil {
		groups = []shopping.Group{}
	}
	c.JSON(http.StatusOK, shoppingResponse{Items: items, Groups: groups})
}

func (s *Server) handleLookup(c *gin.Context) {
	date := c.Param("date")
	if _, err := planner.ParseDate(date); err != nil {
		abortWithError(c, err)
		return
	}
	a, r, ok := s.session.Lookup(date, c.Param("slot"))
	if !ok {
		abort(c, http.StatusNotFound, CodeNotFound, "nothing planned")
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": a, "recipe": r})
}

func (s *Server) handleAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	a, err := s.session.Assign(c.Request.Context(), req.Date, req.Slot, req.RecipeID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) handleRefresh(c *gin.Context) {
	day, ok := s.queryDate(c, "date")
	if !ok {
		return
	}
	if err := s.session.RefreshAround(c.Request.Context(), day); err != nil {
		if !errors.Is(err, app.ErrSuperseded) {
			s.logger.Warn("Refresh failed", zap.Error(err))
		}
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.session.Status())
}

func (s *Server) handleGetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Preferences())
}

func (s *Server) handlePutPreferences(c *gin.Context) {
	var p preferences.Preferences
	if err := c.ShouldBindJSON(&p); err != nil {
		abort(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	p.Version = preferences.CurrentVersion
	saved, err := s.session.SetPreferences(c.Request.Context(), p)
	if err != nil {
		abort(c, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	c.JSON(http.StatusOK, saved)
}

type tokenFunc func(ctx context.Context, token string) (preferences.Preferences, error)

// tokenHandler serves the add and remove endpoints of the token lists. The
// token comes from the path on DELETE and from the body otherwise.
func (s *Server) tokenHandler(fn tokenFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if token == "" {
			var req tokenRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				abort(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
				return
			}
			token = req.Token
		}
		if strings.TrimSpace(token) == "" {
			abort(c, http.StatusBadRequest, CodeInvalidRequest, "token is empty")
			return
		}
		p, err := fn(c.Request.Context(), token)
		if err != nil {
			abort(c, http.StatusInternalServerError, CodeInternal, err.Error())
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// queryDate reads an optional YYYY-MM-DD query parameter, defaulting to
// today. It aborts the request on a malformed date.
func (s *Server) queryDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return s.session.Today(), true
	}
	day, err := planner.ParseDate(raw)
	if err != nil {
		abortWithError(c, err)
		return time.Time{}, false
	}
	return day, true
}
