package backend

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"meal-planner/internal/config"
	"meal-planner/internal/metrics"
	"meal-planner/internal/planner"
)

type recordingRecorder struct {
	mu    sync.Mutex
	calls []metrics.CallMetric
}

func (r *recordingRecorder) Record(_ context.Context, m metrics.CallMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, m)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, signingKey string) (Client, *recordingRecorder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{API: config.APIConfig{
		BaseURL:    server.URL,
		SigningKey: signingKey,
		Timeout:    5 * time.Second,
		UserID:     "public",
	}}
	rec := &recordingRecorder{}
	return NewClient(cfg, rec, zap.NewNop()), rec
}

func TestListRecipes(t *testing.T) {
	ctx := context.Background()

	t.Run("BareArray", func(t *testing.T) {
		client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/recipes", r.URL.Path)
			assert.Equal(t, "seafood, pork", r.URL.Query().Get("exclude"))
			assert.Equal(t, "thai,quick", r.URL.Query().Get("tags"))
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			_, err := uuid.Parse(r.Header.Get(RequestIDHeader))
			assert.NoError(t, err, "request id should be a uuid")
			assert.Empty(t, r.Header.Get("Authorization"))

			fmt.Fprintln(w, `[{"id": "r1", "title": "Pad Thai", "servings": "", "ingredients": [{"item": "Noodles", "qty": "200g"}]}]`)
		}, "")

		recipes, err := client.ListRecipes(ctx, Criteria{Exclude: []string{"seafood", "pork"}, Tags: []string{"thai", "quick"}, Page: 2})
		require.NoError(t, err)
		require.Len(t, recipes, 1)
		assert.Equal(t, "Pad Thai", recipes[0].Name)
		assert.Equal(t, 1, recipes[0].Serves)
		assert.Equal(t, "200g", recipes[0].Ingredients[0].Amount)

		require.Len(t, rec.calls, 1)
		assert.Equal(t, "list_recipes", rec.calls[0].Operation)
		assert.True(t, rec.calls[0].Success)
	})

	t.Run("ItemsEnvelope", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, r.URL.Query().Has("exclude"))
			fmt.Fprintln(w, `{"items": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}], "page": 1}`)
		}, "")

		recipes, err := client.ListRecipes(ctx, Criteria{})
		require.NoError(t, err)
		require.Len(t, recipes, 2)
		assert.Equal(t, "2", recipes[1].ID)
	})

	t.Run("ServerError", func(t *testing.T) {
		client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, "")

		_, err := client.ListRecipes(ctx, Criteria{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnexpectedStatus))

		require.Len(t, rec.calls, 1)
		assert.False(t, rec.calls[0].Success)
		assert.Equal(t, 500, rec.calls[0].StatusCode)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `"nope"`)
		}, "")

		_, err := client.ListRecipes(ctx, Criteria{})
		assert.Error(t, err)
	})
}

func TestListPlans(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plans", r.URL.Path)
		assert.Equal(t, "2024-03-04", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-03-10", r.URL.Query().Get("to"))
		fmt.Fprintln(w, `{"items": [{"date": "2024-03-04", "slot": "main", "recipeId": "r1"}, {"date": "2024-03-05", "recipeId": 7}]}`)
	}, "")

	plans, err := client.ListPlans(context.Background(), "2024-03-04", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, []planner.Assignment{
		{Date: "2024-03-04", Slot: "main", RecipeID: "r1"},
		{Date: "2024-03-05", RecipeID: "7"},
	}, plans)
}

func TestSavePlan(t *testing.T) {
	secret := "a1b2c3d4e5f60718"
	var got map[string]string

	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/plans", r.URL.Path)

		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "Bearer "))
		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(token *jwt.Token) (interface{}, error) {
			assert.Equal(t, "key-id", token.Header["kid"])
			return hexSecret(t, secret), nil
		}, jwt.WithAudience("meal-planner"))
		if assert.NoError(t, err) {
			assert.True(t, token.Valid)
		}

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintln(w, `{"ok": true}`)
	}, "key-id:"+secret)

	err := client.SavePlan(context.Background(), planner.Assignment{Date: "2024-03-04", RecipeID: "r1"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"userId": "public", "date": "2024-03-04", "slot": "main", "recipeId": "r1"}, got)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "save_plan", rec.calls[0].Operation)
}

func TestSavePlanRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, "")

	err := client.SavePlan(context.Background(), planner.Assignment{Date: "2024-03-04", Slot: "lunch", RecipeID: "r1"})
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
}

func TestCreateToken(t *testing.T) {
	_, err := createToken("missing-colon", time.Now())
	assert.Error(t, err)

	_, err = createToken("id:not-hex", time.Now())
	assert.Error(t, err)

	token, err := createToken("id:00ff", time.Now())
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)
}

func TestUnwrapItems(t *testing.T) {
	empty, err := unwrapItems[planner.Assignment]([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, empty)

	empty, err = unwrapItems[planner.Assignment]([]byte(`{"data": []}`))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func hexSecret(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	assert.NoError(t, err)
	return b
}
