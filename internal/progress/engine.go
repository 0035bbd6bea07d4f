package progress

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"

	"spendlens/internal/logger"
	"spendlens/internal/state"
	"spendlens/internal/storage"
)

const (
	// checkboxStatesKey holds the flat identifier→checked map, always
	// written as a whole document
	checkboxStatesKey = "checkbox_states"

	// milestoneMarkerKey holds the highest milestone crossed so far
	milestoneMarkerKey = "milestone_marker"
)

// State container keys the engine publishes after every recompute so other
// components can read progress without recomputation
const (
	StateKeyGateStatus             = "gateStatus"
	StateKeyMustHaveProgress       = "mustHaveProgress"
	StateKeyCategorizationProgress = "categorizationProgress"
)

// ErrConfirmationRequired is returned by Reset and ResetScoped when the
// caller has not explicitly confirmed the destructive operation
var ErrConfirmationRequired = errors.New("reset requires explicit confirmation")

// GateStatus describes whether a gate currently caps the displayed progress
type GateStatus struct {
	Blocked     bool   `json:"blocked"`
	MaxProgress int    `json:"maxProgress"`
	Reason      string `json:"reason"`
}

// ProgressState is the derived view computed from the tracked checkbox map
type ProgressState struct {
	TotalCount        int        `json:"totalCount"`
	CompletedCount    int        `json:"completedCount"`
	MustHavePct       float64    `json:"mustHavePct"`
	CategorizationPct float64    `json:"categorizationPct"`
	WeightedPct       float64    `json:"weightedPct"`
	DisplayedPct      int        `json:"displayedPct"`
	Gate              GateStatus `json:"gate"`
}

// MilestoneHandler is invoked once per upward crossing of a milestone
// threshold, with the threshold and the stats at crossing time
type MilestoneHandler func(threshold int, stats ProgressState)

// Engine tracks checkbox completion, computes the weighted gated progress
// percentage, and persists the full checkbox map on every mutation. It is
// the sole writer of the checkbox map; other components read the published
// values from the state container.
type Engine struct {
	config    Config
	store     *storage.Store
	state     *state.Container
	log       logger.Logger
	milestone MilestoneHandler

	mustHaveSet       map[string]struct{}
	categorizationSet map[string]struct{}

	mu            sync.RWMutex
	items         map[string]bool
	completed     int
	lastMilestone int
}

// New validates config and builds an engine. Call Load to apply previously
// persisted checkbox state.
func New(config Config, store *storage.Store, stateContainer *state.Container) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:            config,
		store:             store,
		state:             stateContainer,
		log:               logger.New("progress"),
		mustHaveSet:       toSet(config.MustHave),
		categorizationSet: toSet(config.Categorization),
		items:             make(map[string]bool),
	}
	return engine, nil
}

// OnMilestone registers the milestone notification handler
func (e *Engine) OnMilestone(handler MilestoneHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.milestone = handler
}

// Load restores the persisted checkbox map and milestone marker
func (e *Engine) Load(ctx context.Context) ProgressState {
	log := e.log.Function("Load")

	e.mu.Lock()
	persisted := e.persistedStates(ctx)
	for id, checked := range persisted {
		if _, tracked := e.items[id]; !tracked {
			e.items[id] = checked
			if checked {
				e.completed++
			}
		}
	}

	if marker, ok := e.store.Get(ctx, milestoneMarkerKey).(string); ok {
		e.lastMilestone = parseMilestone(marker)
	}
	loaded := len(e.items)
	marker := e.lastMilestone
	e.mu.Unlock()

	log.Info("Loaded persisted checkbox state", "items", loaded, "lastMilestone", marker)
	return e.publish(ctx)
}

// RegisterOrSync idempotently registers unseen identifiers, applying any
// previously persisted checked state to them. Already-tracked identifiers
// are untouched; the tracked set only grows.
func (e *Engine) RegisterOrSync(ctx context.Context, ids []string) ProgressState {
	e.mu.Lock()
	persisted := e.persistedStates(ctx)

	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, tracked := e.items[id]; tracked {
			continue
		}
		checked := persisted[id]
		e.items[id] = checked
		if checked {
			e.completed++
		}
		added++
	}

	if added > 0 {
		e.persistLocked(ctx)
	}
	e.mu.Unlock()

	if added > 0 {
		e.log.Function("RegisterOrSync").Debug("Registered checklist items", "added", added)
	}
	return e.publish(ctx)
}

// Toggle flips the checked state of id, persists the whole checkbox map,
// and returns the recomputed progress. An identifier seen here for the
// first time is registered on the fly.
func (e *Engine) Toggle(ctx context.Context, id string) ProgressState {
	e.mu.Lock()
	current, tracked := e.items[id]
	if !tracked {
		current = false
	}

	next := !current
	e.items[id] = next
	if next {
		e.completed++
	} else {
		e.completed--
	}

	e.persistLocked(ctx)
	e.mu.Unlock()

	stats := e.publish(ctx)
	e.checkMilestone(ctx, stats)
	return stats
}

// Reset clears every tracked identifier and the persisted copy. Destructive
// and irreversible, so it refuses to run without explicit confirmation.
func (e *Engine) Reset(ctx context.Context, confirm bool) (ProgressState, error) {
	if !confirm {
		return ProgressState{}, ErrConfirmationRequired
	}

	e.mu.Lock()
	e.items = make(map[string]bool)
	e.completed = 0
	e.lastMilestone = 0
	e.persistLocked(ctx)
	e.store.Remove(ctx, milestoneMarkerKey)
	e.mu.Unlock()

	e.log.Function("Reset").Info("Progress reset")
	return e.publish(ctx), nil
}

// ResetScoped removes only the supplied identifiers from tracking, used to
// reset a single section. Requires the same explicit confirmation as Reset.
func (e *Engine) ResetScoped(ctx context.Context, ids []string, confirm bool) (ProgressState, error) {
	if !confirm {
		return ProgressState{}, ErrConfirmationRequired
	}

	e.mu.Lock()
	removed := 0
	for _, id := range ids {
		checked, tracked := e.items[id]
		if !tracked {
			continue
		}
		delete(e.items, id)
		if checked {
			e.completed--
		}
		removed++
	}
	if removed > 0 {
		e.persistLocked(ctx)
	}
	e.mu.Unlock()

	e.log.Function("ResetScoped").Info("Scoped progress reset", "removed", removed)
	return e.publish(ctx), nil
}

// GetStats returns the current derived progress without mutating anything
func (e *Engine) GetStats() ProgressState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.calculateLocked()
}

// Export returns a copy of the tracked identifier→checked map
func (e *Engine) Export() map[string]bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dump := make(map[string]bool, len(e.items))
	for id, checked := range e.items {
		dump[id] = checked
	}
	return dump
}

// Import replaces unseen identifiers with the supplied checked states and
// persists, returning the number of identifiers applied. Existing tracked
// identifiers keep their current state.
func (e *Engine) Import(ctx context.Context, data map[string]bool) int {
	e.mu.Lock()
	applied := 0
	for id, checked := range data {
		if id == "" {
			continue
		}
		if existing, tracked := e.items[id]; tracked {
			if existing == checked {
				continue
			}
			e.items[id] = checked
			if checked {
				e.completed++
			} else {
				e.completed--
			}
		} else {
			e.items[id] = checked
			if checked {
				e.completed++
			}
		}
		applied++
	}
	if applied > 0 {
		e.persistLocked(ctx)
	}
	e.mu.Unlock()

	e.publish(ctx)
	return applied
}

// calculateLocked implements the weighted progress algorithm. Empty buckets
// contribute 0 rather than being skipped, which keeps an unconfigured
// must-have set from inflating progress.
func (e *Engine) calculateLocked() ProgressState {
	mustHaveTotal := len(e.config.MustHave)
	categorizationTotal := len(e.config.Categorization)

	var mustHaveDone, categorizationDone, otherDone, otherTotal int
	for id, checked := range e.items {
		_, isMustHave := e.mustHaveSet[id]
		_, isCategorization := e.categorizationSet[id]
		switch {
		case isMustHave:
			if checked {
				mustHaveDone++
			}
		case isCategorization:
			if checked {
				categorizationDone++
			}
		default:
			otherTotal++
			if checked {
				otherDone++
			}
		}
	}

	mustHavePct := ratio(mustHaveDone, mustHaveTotal)
	categorizationPct := ratio(categorizationDone, categorizationTotal)
	otherPct := ratio(otherDone, otherTotal)

	weighted := CalculateWeighted(mustHavePct, categorizationPct, otherPct, e.config.Weights)

	gate := e.evaluateGates(mustHavePct, categorizationPct)

	displayed := roundHalfUp(weighted * 100)
	if displayed > gate.MaxProgress {
		displayed = gate.MaxProgress
	}

	return ProgressState{
		TotalCount:        len(e.items),
		CompletedCount:    e.completed,
		MustHavePct:       mustHavePct,
		CategorizationPct: categorizationPct,
		WeightedPct:       weighted,
		DisplayedPct:      displayed,
		Gate:              gate,
	}
}

// evaluateGates applies the two sequential gates; when both fire the
// tighter cap wins
func (e *Engine) evaluateGates(mustHavePct, categorizationPct float64) GateStatus {
	if mustHavePct < e.config.MustHaveGate.Threshold {
		return GateStatus{
			Blocked:     true,
			MaxProgress: e.config.MustHaveGate.Cap,
			Reason:      "must-have fields incomplete",
		}
	}

	if categorizationPct < e.config.CategorizationGate.Threshold {
		return GateStatus{
			Blocked:     true,
			MaxProgress: e.config.CategorizationGate.Cap,
			Reason:      "categorization incomplete",
		}
	}

	return GateStatus{Blocked: false, MaxProgress: 100}
}

// publish recomputes and pushes the derived values into the state container
func (e *Engine) publish(ctx context.Context) ProgressState {
	e.mu.RLock()
	stats := e.calculateLocked()
	e.mu.RUnlock()

	e.state.Set(StateKeyGateStatus, stats.Gate)
	e.state.Set(StateKeyMustHaveProgress, stats.MustHavePct)
	e.state.Set(StateKeyCategorizationProgress, stats.CategorizationPct)
	return stats
}

// checkMilestone fires the handler when the overall unweighted completion
// ratio crosses a configured threshold upward. The marker is monotone: a
// downward move never rewinds it, so each milestone notifies at most once
// per reset cycle.
func (e *Engine) checkMilestone(ctx context.Context, stats ProgressState) {
	if stats.TotalCount == 0 {
		return
	}

	completionPct := float64(stats.CompletedCount) / float64(stats.TotalCount) * 100

	e.mu.Lock()
	crossed := 0
	for _, threshold := range e.config.Milestones {
		if threshold > e.lastMilestone && completionPct >= float64(threshold) {
			crossed = threshold
		}
	}
	if crossed == 0 {
		e.mu.Unlock()
		return
	}
	e.lastMilestone = crossed
	handler := e.milestone
	e.mu.Unlock()

	e.store.Set(ctx, milestoneMarkerKey, strconv.Itoa(crossed))
	e.log.Function("checkMilestone").Info("Milestone reached", "threshold", crossed)

	if handler != nil {
		handler(crossed, stats)
	}
}

// persistLocked writes the whole checkbox map; callers hold e.mu
func (e *Engine) persistLocked(ctx context.Context) {
	if !e.store.Set(ctx, checkboxStatesKey, e.items) {
		e.log.Function("persist").Warn("failed to persist checkbox states")
	}
}

// persistedStates reads the persisted checkbox map, tolerating both the
// freshly-written and JSON-decoded forms
func (e *Engine) persistedStates(ctx context.Context) map[string]bool {
	states := make(map[string]bool)
	raw, ok := e.store.Get(ctx, checkboxStatesKey).(map[string]any)
	if !ok {
		return states
	}
	for id, value := range raw {
		if checked, isBool := value.(bool); isBool {
			states[id] = checked
		}
	}
	return states
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func ratio(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func roundHalfUp(value float64) int {
	return int(math.Floor(value + 0.5))
}

func parseMilestone(raw string) int {
	threshold, err := strconv.Atoi(raw)
	if err != nil || threshold < 0 {
		return 0
	}
	return threshold
}
