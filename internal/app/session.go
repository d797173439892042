package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"meal-planner/internal/backend"
	"meal-planner/internal/calendar"
	"meal-planner/internal/filter"
	"meal-planner/internal/planner"
	"meal-planner/internal/preferences"
	"meal-planner/internal/recipe"
	"meal-planner/internal/shopping"
)

// ErrSuperseded is returned by a refresh whose results arrived after a newer
// refresh or a local edit. The results are dropped.
var ErrSuperseded = errors.New("refresh superseded")

// RecipeStore keeps the last fetched catalog and the imported recipes.
type RecipeStore interface {
	SaveSnapshot(ctx context.Context, recipes []recipe.Recipe) error
	LoadSnapshot(ctx context.Context) ([]recipe.Recipe, error)
	ListImported(ctx context.Context) ([]recipe.Recipe, error)
}

// PlanStore keeps the last fetched plan list.
type PlanStore interface {
	SaveSnapshot(ctx context.Context, plans []planner.Assignment) error
	LoadSnapshot(ctx context.Context) ([]planner.Assignment, error)
}

// Status describes the data currently served.
type Status struct {
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loadedAt"`
	Recipes    int       `json:"recipes"`
	Plans      int       `json:"plans"`
	// Stale is set when the last refresh failed and older data is shown.
	Stale     bool   `json:"stale"`
	LastError string `json:"lastError,omitempty"`
}

type snapshot struct {
	fetched  []recipe.Recipe
	catalog  *recipe.Catalog
	plans    []planner.Assignment
	index    *planner.Index
	loadedAt time.Time
}

// SessionDeps are the collaborators of a Session. Recipes, Plans and
// Notifier are optional.
type SessionDeps struct {
	Backend     backend.Client
	Preferences preferences.Store
	Recipes     RecipeStore
	Plans       PlanStore
	Notifier    Notifier
	Logger      *zap.Logger
	UserID      string
	Location    *time.Location
	Now         func() time.Time
}

// Session owns the in-memory catalog and plan snapshot and derives every view
// from it.
type Session struct {
	backend   backend.Client
	prefStore preferences.Store
	recipes   RecipeStore
	plans     PlanStore
	notifier  Notifier
	logger    *zap.Logger
	userID    string
	loc       *time.Location
	now       func() time.Time

	// prefMu serializes preference edits from load to save.
	prefMu sync.Mutex
	// persistMu orders snapshot writes to local storage.
	persistMu sync.Mutex

	mu         sync.RWMutex
	snap       snapshot
	imported   []recipe.Recipe
	prefs      preferences.Preferences
	generation uint64
	lastErr    error
}

// NewSession creates a Session with an empty snapshot and default preferences.
// Call Load to seed it from local storage.
func NewSession(deps SessionDeps) *Session {
	s := &Session{
		backend:   deps.Backend,
		prefStore: deps.Preferences,
		recipes:   deps.Recipes,
		plans:     deps.Plans,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		userID:    deps.UserID,
		loc:       deps.Location,
		now:       deps.Now,
		prefs:     preferences.Default(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.snap = s.buildSnapshot(nil, nil, nil)
	return s
}

// Load reads preferences and the last-known-good snapshot from local
// storage so the session can serve views before the first refresh.
func (s *Session) Load(ctx context.Context) error {
	var prefs preferences.Preferences
	if s.prefStore != nil {
		p, err := s.prefStore.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		prefs = p
	} else {
		prefs = preferences.Default()
	}

	var fetched, imported []recipe.Recipe
	var plans []planner.Assignment
	if s.recipes != nil {
		var err error
		if fetched, err = s.recipes.LoadSnapshot(ctx); err != nil {
			return fmt.Errorf("failed to load recipe snapshot: %w", err)
		}
		if imported, err = s.recipes.ListImported(ctx); err != nil {
			return fmt.Errorf("failed to load imported recipes: %w", err)
		}
	}
	if s.plans != nil {
		var err error
		if plans, err = s.plans.LoadSnapshot(ctx); err != nil {
			return fmt.Errorf("failed to load plan snapshot: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
	s.imported = imported
	s.snap = s.buildSnapshot(fetched, imported, plans)
	s.logger.Info("Session seeded from local storage",
		zap.Int("recipes", s.snap.catalog.Len()),
		zap.Int("plans", len(plans)))
	return nil
}

// Refresh fetches the full catalog and the plans between from and to
// concurrently and replaces the snapshot with the results. On failure the
// previous snapshot is kept and the error is recorded and notified.
func (s *Session) Refresh(ctx context.Context, from, to string) error {
	gen := s.bumpGeneration()

	var fetched []recipe.Recipe
	var plans []planner.Assignment
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetched, err = s.backend.ListRecipes(gctx, backend.Criteria{})
		if err != nil {
			return fmt.Errorf("failed to fetch recipes: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		plans, err = s.backend.ListPlans(gctx, from, to)
		if err != nil {
			return fmt.Errorf("failed to fetch plans: %w", err)
		}
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Dropping superseded refresh", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	if err != nil {
		s.lastErr = err
		s.mu.Unlock()
		s.notify(LevelError, "Could not refresh recipes and plans; showing the last loaded data", err)
		return err
	}
	s.snap = s.buildSnapshot(fetched, s.imported, plans)
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Info("Session refreshed",
		zap.Uint64("generation", gen),
		zap.Int("recipes", len(fetched)),
		zap.Int("plans", len(plans)))
	s.persist(ctx)
	return nil
}

// PlanWindow returns the dates fetched around day: from the first cell of
// the previous month's grid to the last cell of the next month's grid.
func PlanWindow(day time.Time, weekStart time.Weekday) (from, to string) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	prev := calendar.MonthDates(first.AddDate(0, -1, 0), weekStart)
	next := calendar.MonthDates(first.AddDate(0, 1, 0), weekStart)
	return planner.FormatDate(prev[0]), planner.FormatDate(next[len(next)-1])
}

// RefreshAround refreshes the plan window around day.
func (s *Session) RefreshAround(ctx context.Context, day time.Time) error {
	from, to := PlanWindow(day, s.Preferences().Weekday())
	return s.Refresh(ctx, from, to)
}

// Assign places recipeID in a slot of a date. The local plan list is updated
// before the save is sent; a failed save is notified and returned but the
// local change stays.
func (s *Session) Assign(ctx context.Context, date, slot, recipeID string) (planner.Assignment, error) {
	a := planner.Assignment{
		UserID:   s.userID,
		Date:     planner.DateKey(date),
		Slot:     planner.NormalizeSlot(slot),
		RecipeID: recipeID,
	}
	if err := a.Validate(); err != nil {
		return planner.Assignment{}, err
	}

	s.mu.Lock()
	// Any in-flight refresh was started before this edit.
	s.generation++
	plans := planner.Upsert(s.snap.plans, a)
	s.snap = s.buildSnapshot(s.snap.fetched, s.imported, plans)
	s.mu.Unlock()

	if err := s.backend.SavePlan(ctx, a); err != nil {
		s.notify(LevelError, "Could not save the plan for "+a.Date+" "+a.Slot, err)
		return a, fmt.Errorf("failed to save plan: %w", err)
	}

	s.notify(LevelInfo, "Saved "+a.Date+" "+a.Slot, nil)
	s.persistPlans(ctx)
	return a, nil
}

// AddImported merges a clipped recipe into the current and future snapshots.
func (s *Session) AddImported(rec recipe.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imported := make([]recipe.Recipe, 0, len(s.imported)+1)
	for _, r := range s.imported {
		if r.ID != rec.ID {
			imported = append(imported, r)
		}
	}
	s.imported = append(imported, rec)
	s.snap = s.buildSnapshot(s.snap.fetched, s.imported, s.snap.plans)
}

// Lookup returns the assignment of a date and slot and its recipe, when the
// recipe is still in the catalog.
func (s *Session) Lookup(date, slot string) (planner.Assignment, *recipe.Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.snap.index.Get(planner.DateKey(date), planner.NormalizeSlot(slot))
	if !ok {
		return planner.Assignment{}, nil, false
	}
	if r, found := s.snap.catalog.Recipe(a.RecipeID); found {
		return a, &r, true
	}
	return a, nil, true
}

// Recipe looks a recipe up by id.
func (s *Session) Recipe(id string) (recipe.Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.catalog.Recipe(id)
}

// ShoppingList aggregates every planned meal, leaving out pantry staples.
func (s *Session) ShoppingList() []shopping.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return shopping.BuildList(s.snap.index, s.snap.catalog, s.prefs.Pantry)
}

// Week returns the grid of the week containing day.
func (s *Session) Week(day time.Time) []calendar.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := calendar.StartOfWeek(day, s.prefs.Weekday())
	return calendar.BuildWeek(start, s.gridOptions())
}

// Month returns the 42-cell grid of the month containing day.
func (s *Session) Month(day time.Time) []calendar.Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calendar.BuildMonth(day, s.prefs.Weekday(), s.gridOptions())
}

// Today returns the current date in the session's time zone.
func (s *Session) Today() time.Time {
	return s.now().In(s.loc)
}

// Suggestions returns up to the preferred number of recipes carrying every
// tag and no disliked token.
func (s *Session) Suggestions(tags []string) []recipe.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Suggest(s.snap.catalog.All(), filter.Criteria{
		Dislikes: s.prefs.Dislikes,
		Tags:     tags,
		Limit:    s.prefs.SuggestionCount,
	})
}

// Tags returns every tag in the catalog.
func (s *Session) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.catalog.Tags()
}

// Status reports the freshness of the snapshot.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{
		Generation: s.generation,
		LoadedAt:   s.snap.loadedAt,
		Recipes:    s.snap.catalog.Len(),
		Plans:      s.snap.index.Len(),
		Stale:      s.lastErr != nil,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Preferences returns a copy of the current preferences.
func (s *Session) Preferences() preferences.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// SetPreferences replaces the preferences wholesale.
func (s *Session) SetPreferences(ctx context.Context, p preferences.Preferences) (preferences.Preferences, error) {
	return s.updatePreferences(ctx, func(cur *preferences.Preferences) error {
		*cur = p.Clone()
		return nil
	})
}

func (s *Session) AddDislike(ctx context.Context, token string) (preferences.Preferences, error) {
	return s.updatePreferences(ctx, func(p *preferences.Preferences) error {
		set := filter.NewTokenSet(p.Dislikes...)
		set.Add(token)
		p.Dislikes = set.Tokens()
		return nil
	})
}

func (s *Session) RemoveDislike(ctx context.Context, token string) (preferences.Preferences, error) {
	return s.updatePreferences(ctx, func(p *preferences.Preferences) error {
		set := filter.NewTokenSet(p.Dislikes...)
		set.Remove(token)
		p.Dislikes = set.Tokens()
		return nil
	})
}

func (s *Session) AddPantry(ctx context.Context, token string) (preferences.Preferences, error) {
	return s.updatePreferences(ctx, func(p *preferences.Preferences) error {
		set := filter.NewTokenSet(p.Pantry...)
		set.Add(token)
		p.Pantry = set.Tokens()
		return nil
	})
}

func (s *Session) RemovePantry(ctx context.Context, token string) (preferences.Preferences, error) {
	return s.updatePreferences(ctx, func(p *preferences.Preferences) error {
		set := filter.NewTokenSet(p.Pantry...)
		set.Remove(token)
		p.Pantry = set.Tokens()
		return nil
	})
}

// SetSuggestionCount sets how many suggestions are shown; n must be positive.
func (s *Session) SetSuggestionCount(ctx context.Context, n int) (preferences.Preferences, error) {
	return s.updatePreferences(ctx, func(p *preferences.Preferences) error {
		if n <= 0 {
			return fmt.Errorf("invalid suggestion count %d", n)
		}
		p.SuggestionCount = n
		return nil
	})
}

func (s *Session) SetWeekStart(ctx context.Context, day time.Weekday) (preferences.Preferences, error) {
	return s.updatePreferences(ctx, func(p *preferences.Preferences) error {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("invalid week start %d", day)
		}
		p.WeekStart = int(day)
		return nil
	})
}

// updatePreferences applies fn to a copy, saves it and only then makes it
// current. Edits run one at a time so none is lost.
func (s *Session) updatePreferences(ctx context.Context, fn func(p *preferences.Preferences) error) (preferences.Preferences, error) {
	s.prefMu.Lock()
	defer s.prefMu.Unlock()

	s.mu.RLock()
	next := s.prefs.Clone()
	s.mu.RUnlock()

	if err := fn(&next); err != nil {
		return preferences.Preferences{}, err
	}
	next = preferences.Migrate(next)

	if s.prefStore != nil {
		if err := s.prefStore.Save(ctx, next); err != nil {
			return preferences.Preferences{}, fmt.Errorf("failed to save preferences: %w", err)
		}
	}

	s.mu.Lock()
	s.prefs = next
	s.mu.Unlock()
	return next.Clone(), nil
}

func (s *Session) bumpGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

// gridOptions must be called with mu held.
func (s *Session) gridOptions() calendar.Options {
	return calendar.Options{
		Index:    s.snap.index,
		Catalog:  s.snap.catalog,
		Dislikes: s.prefs.Dislikes,
		Today:    s.Today(),
	}
}

func (s *Session) buildSnapshot(fetched, imported []recipe.Recipe, plans []planner.Assignment) snapshot {
	return snapshot{
		fetched:  fetched,
		catalog:  recipe.NewCatalog(fetched).Merge(imported),
		plans:    plans,
		index:    planner.BuildIndex(plans),
		loadedAt: s.now(),
	}
}

// persist writes the snapshot currently served to local storage. Writes are
// serialized and always read the latest snapshot, so an older refresh can
// never overwrite a newer assignment on disk.
func (s *Session) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	fetched := s.snap.fetched
	s.mu.RUnlock()

	if s.recipes != nil {
		if err := s.recipes.SaveSnapshot(ctx, fetched); err != nil {
			s.logger.Warn("Failed to persist recipe snapshot", zap.Error(err))
		}
	}
	s.persistPlansLocked(ctx)
}

// persistPlans writes the plan list currently served.
func (s *Session) persistPlans(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.persistPlansLocked(ctx)
}

// persistPlansLocked must be called with persistMu held.
func (s *Session) persistPlansLocked(ctx context.Context) {
	if s.plans == nil {
		return
	}
	s.mu.RLock()
	plans := s.snap.plans
	s.mu.RUnlock()
	if err := s.plans.SaveSnapshot(ctx, plans); err != nil {
		s.logger.Warn("Failed to persist plan snapshot", zap.Error(err))
	}
}

func (s *Session) notify(level Level, msg string, err error) {
	s.notifier.Notify(Notification{Level: level, Message: msg, Err: err, At: s.now()})
}
