// Package backend is the client for the remote recipe and plan API.
package backend

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"meal-planner/internal/config"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
	"meal-planner/internal/recipe"
)

// ErrUnexpectedStatus wraps every non-2xx API response.
var ErrUnexpectedStatus = errors.New("unexpected API status")

// RequestIDHeader carries a fresh id on every request.
const RequestIDHeader = "X-Request-ID"

// Criteria narrows a recipe listing on the server side.
type Criteria struct {
	// Exclude holds dislike tokens; the API drops matching recipes.
	Exclude []string
	Tags    []string
	// Page is 1-based; zero leaves paging to the server.
	Page int
}

// Client is an interface for the recipe/plan API.
type Client interface {
	ListRecipes(ctx context.Context, c Criteria) ([]recipe.Recipe, error)
	ListPlans(ctx context.Context, from, to string) ([]planner.Assignment, error)
	SavePlan(ctx context.Context, a planner.Assignment) error
}

// apiClient is the concrete implementation of Client.
type apiClient struct {
	http       *resty.Client
	userID     string
	signingKey string
	recorder   metrics.Recorder
	logger     *zap.Logger
}

// NewClient creates a new API client. A nil recorder drops metrics.
func NewClient(cfg *config.Config, recorder metrics.Recorder, logger *zap.Logger) Client {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	c := &apiClient{
		userID:     cfg.API.UserID,
		signingKey: cfg.API.SigningKey,
		recorder:   recorder,
		logger:     logger,
	}
	c.http = resty.New().
		SetBaseURL(cfg.API.BaseURL).
		SetTimeout(cfg.API.Timeout).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(c.prepare)
	return c
}

func (c *apiClient) prepare(_ *resty.Client, req *resty.Request) error {
	req.SetHeader(RequestIDHeader, uuid.NewString())
	if c.signingKey == "" {
		return nil
	}
	token, err := createToken(c.signingKey, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create API token: %w", err)
	}
	req.SetAuthToken(token)
	return nil
}

// ListRecipes fetches and normalizes the recipe catalog.
func (c *apiClient) ListRecipes(ctx context.Context, crit Criteria) ([]recipe.Recipe, error) {
	req := c.http.R().SetContext(ctx)
	if len(crit.Exclude) > 0 {
		req.SetQueryParam("exclude", strings.Join(crit.Exclude, ", "))
	}
	if len(crit.Tags) > 0 {
		req.SetQueryParam("tags", strings.Join(crit.Tags, ","))
	}
	if crit.Page > 0 {
		req.SetQueryParam("page", strconv.Itoa(crit.Page))
	}

	body, err := c.do(ctx, "list_recipes", req, resty.MethodGet, "/recipes")
	if err != nil {
		return nil, err
	}

	raws, err := unwrapItems[recipe.RawRecipe](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}
	return recipe.NormalizeAll(raws), nil
}

// ListPlans fetches the assignments between from and to, inclusive.
// Empty bounds are left out of the query.
func (c *apiClient) ListPlans(ctx context.Context, from, to string) ([]planner.Assignment, error) {
	req := c.http.R().SetContext(ctx)
	if from != "" {
		req.SetQueryParam("from", from)
	}
	if to != "" {
		req.SetQueryParam("to", to)
	}

	body, err := c.do(ctx, "list_plans", req, resty.MethodGet, "/plans")
	if err != nil {
		return nil, err
	}

	plans, err := unwrapItems[planner.Assignment](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode plans: %w", err)
	}
	return plans, nil
}

// SavePlan stores one assignment. An empty slot is sent as "main".
func (c *apiClient) SavePlan(ctx context.Context, a planner.Assignment) error {
	if a.Slot == "" {
		a.Slot = planner.SlotMain
	}
	if a.UserID == "" {
		a.UserID = c.userID
	}

	req := c.http.R().SetContext(ctx).SetBody(a)
	_, err := c.do(ctx, "save_plan", req, resty.MethodPost, "/plans")
	return err
}

func (c *apiClient) do(ctx context.Context, op string, req *resty.Request, method, path string) ([]byte, error) {
	start := time.Now()
	resp, err := req.Execute(method, path)

	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	if err == nil && resp.IsError() {
		err = fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, path, status)
	} else if err != nil {
		err = fmt.Errorf("failed to execute %s request: %w", op, err)
	}

	if recErr := c.recorder.Record(ctx, metrics.Since(op, start, status, err)); recErr != nil {
		c.logger.Warn("failed to record call metric", zap.String("operation", op), zap.Error(recErr))
	}
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// unwrapItems accepts a bare JSON array or an object with an "items" array.
func unwrapItems[T any](body []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope struct {
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Items == nil {
		return []T{}, nil
	}
	return envelope.Items, nil
}

// createToken generates a short-lived HS256 token from an "id:hexsecret" key.
func createToken(signingKey string, now time.Time) (string, error) {
	keyParts := strings.Split(signingKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid signing key format: expected id:secret")
	}

	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "meal-planner",
	})
	token.Header["kid"] = keyParts[0]

	return token.SignedString(secret)
}
