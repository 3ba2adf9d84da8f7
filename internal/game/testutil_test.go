package game

import (
	"io"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// --- manualScheduler: deferred callbacks that only run on Advance ---

type task struct {
	at      time.Duration
	seq     int
	f       func()
	fired   bool
	stopped bool
}

func (t *task) Stop() bool {
	pending := !t.fired && !t.stopped
	t.stopped = true
	return pending
}

type manualScheduler struct {
	now   time.Duration
	seq   int
	tasks []*task
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.seq++
	t := &task{at: s.now + d, seq: s.seq, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward, running due callbacks in time order
// (ties in scheduling order), including callbacks scheduled along the way.
func (s *manualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		due := s.due(target)
		if due == nil {
			break
		}
		s.now = due.at
		due.fired = true
		due.f()
	}
	s.now = target
}

func (s *manualScheduler) due(limit time.Duration) *task {
	var pending []*task
	for _, t := range s.tasks {
		if !t.fired && !t.stopped && t.at <= limit {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].at != pending[j].at {
			return pending[i].at < pending[j].at
		}
		return pending[i].seq < pending[j].seq
	})
	return pending[0]
}

// Pending counts callbacks that have neither fired nor been stopped.
func (s *manualScheduler) Pending() int {
	n := 0
	for _, t := range s.tasks {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

// --- recorder: a Presenter that remembers what it was told ---

type recorder struct {
	cards        []CardView
	moves        int
	timeText     string
	severity     Severity
	matches      int
	total        int
	outcome      *Outcome
	modal        bool
	celebrations int
	hooks        []string
}

func (r *recorder) RenderBoard(cards []CardView) {
	r.cards = cards
	r.hooks = append(r.hooks, "renderBoard")
}

func (r *recorder) UpdateMoves(count int) {
	r.moves = count
	r.hooks = append(r.hooks, "updateMoves")
}

func (r *recorder) UpdateTimeDisplay(text string, severity Severity) {
	r.timeText, r.severity = text, severity
	r.hooks = append(r.hooks, "updateTimeDisplay")
}

func (r *recorder) UpdateMatches(count, total int) {
	r.matches, r.total = count, total
	r.hooks = append(r.hooks, "updateMatches")
}

func (r *recorder) ShowOutcomeModal(o Outcome) {
	r.outcome = &o
	r.modal = true
	r.hooks = append(r.hooks, "showOutcomeModal")
}

func (r *recorder) HideOutcomeModal() {
	r.modal = false
	r.hooks = append(r.hooks, "hideOutcomeModal")
}

func (r *recorder) SpawnCelebrationEffect() {
	r.celebrations++
	r.hooks = append(r.hooks, "spawnCelebrationEffect")
}

func (r *recorder) count(hook string) int {
	n := 0
	for _, h := range r.hooks {
		if h == hook {
			n++
		}
	}
	return n
}

// --- engine fixtures ---

var testSymbols = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

type fixture struct {
	e     *Engine
	sched *manualScheduler
	rec   *recorder
}

func newFixture(t *testing.T, mode Mode, tweak func(*Options)) *fixture {
	t.Helper()
	quiet := zerolog.New(io.Discard)
	sched := &manualScheduler{}
	rec := &recorder{}
	opts := Options{
		Mode:      mode,
		Symbols:   testSymbols,
		Strict:    true,
		Rand:      rand.New(rand.NewSource(7)),
		Scheduler: sched,
		Logger:    &quiet,
	}
	if tweak != nil {
		tweak(&opts)
	}
	e, err := New("test", opts, rec)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{e: e, sched: sched, rec: rec}
}

// deal replaces the shuffled board with the given faces, in order.
func (f *fixture) deal(faces ...string) {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	cards := make([]Card, len(faces))
	for i, face := range faces {
		cards[i] = Card{ID: i, Face: face, State: CardHidden}
	}
	f.e.cards = cards
}

// standardDeal lays out [A,B,A,C,B,C,D,D,E,E,F,F,G,G,H,H].
func (f *fixture) standardDeal() {
	f.deal("A", "B", "A", "C", "B", "C", "D", "D", "E", "E", "F", "F", "G", "G", "H", "H")
}

func (f *fixture) mustFlip(t *testing.T, ids ...int) {
	t.Helper()
	for _, id := range ids {
		if !f.e.Flip(id) {
			t.Fatalf("flip %d rejected (phase %s)", id, f.e.Snapshot().Phase)
		}
	}
}

func (f *fixture) state(id int) CardState {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	return f.e.cards[id].State
}
