// internal/game/engine.go
//
// Core game engine for a single memory-match session.
// Responsibilities:
//   - Deal and shuffle a paired deck (2 cards per symbol).
//   - Accept or silently reject card flips (flip protocol).
//   - Evaluate face-up pairs after a visual-settle delay.
//   - Run the elapsed or countdown timer.
//   - Detect win/loss and drive the Presenter hooks.
//
// Notes:
//   - Every entry point (flip, key, reset, deferred callbacks) runs under one mutex,
//     so the engine behaves like a single-threaded event loop.
//   - Deferred callbacks capture the epoch at scheduling time; Reset bumps the epoch
//     so a stale evaluation or modal callback is a no-op.
//   - The tick chain carries its own generation; stopping the timer retires it.

package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TickInterval is the timer resolution.
const TickInterval = time.Second

// Default timings, applied when Options leave a field zero.
const (
	DefaultMatchDelay    = 600 * time.Millisecond
	DefaultMismatchDelay = 1000 * time.Millisecond
	DefaultWinModalDelay = 1000 * time.Millisecond
	DefaultCountdown     = 60 * time.Second
	DefaultWarnAt        = 10 * time.Second
	DefaultCriticalAt    = 5 * time.Second
)

// Options configures an Engine. Zero fields take package defaults.
type Options struct {
	Mode          Mode
	Symbols       []string
	MatchDelay    time.Duration // delay before a matching pair locks in
	MismatchDelay time.Duration // delay before a mismatched pair flips back
	WinModalDelay time.Duration // delay between the final match and the win modal
	Countdown     time.Duration // countdown budget (countdown mode only)
	WarnAt        time.Duration
	CriticalAt    time.Duration
	WinMessages   []string
	LoseMessages  []string

	// Strict turns invariant violations into panics instead of log-and-clamp.
	Strict    bool
	Rand      *rand.Rand
	Scheduler Scheduler
	Logger    *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeElapsed
	}
	if len(o.Symbols) == 0 {
		o.Symbols = DefaultSymbols
	}
	if o.MatchDelay <= 0 {
		o.MatchDelay = DefaultMatchDelay
	}
	if o.MismatchDelay <= 0 {
		o.MismatchDelay = DefaultMismatchDelay
	}
	if o.WinModalDelay <= 0 {
		o.WinModalDelay = DefaultWinModalDelay
	}
	if o.Countdown <= 0 {
		o.Countdown = DefaultCountdown
	}
	if o.WarnAt <= 0 {
		o.WarnAt = DefaultWarnAt
	}
	if o.CriticalAt <= 0 {
		o.CriticalAt = DefaultCriticalAt
	}
	if len(o.WinMessages) == 0 {
		o.WinMessages = DefaultWinMessages
	}
	if len(o.LoseMessages) == 0 {
		o.LoseMessages = DefaultLoseMessages
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler()
	}
	if o.Logger == nil {
		o.Logger = &log.Logger
	}
	return o
}

// Engine holds the state of a single memory-match game.
type Engine struct {
	mu     sync.Mutex
	id     string
	opts   Options
	p      Presenter
	logger zerolog.Logger

	cards     []Card
	selection []int // indices of face-up, unresolved cards (0..2)
	moves     int
	matches   int
	phase     Phase
	elapsed   int // seconds, elapsed mode
	remaining int // seconds, countdown mode

	epoch        uint64
	timerGen     uint64
	timerRunning bool
	tick         Timer

	modalVisible bool
	outcome      *Outcome
	closed       bool
}

// New deals a fresh board and renders it through p.
// It fails when the symbol set is invalid (see ValidateSymbols).
func New(id string, opts Options, p Presenter) (*Engine, error) {
	opts = opts.withDefaults()
	if err := ValidateSymbols(opts.Symbols); err != nil {
		return nil, fmt.Errorf("new game %s: %w", id, err)
	}
	e := &Engine{
		id:     id,
		opts:   opts,
		p:      p,
		logger: opts.Logger.With().Str("gameId", id).Str("mode", string(opts.Mode)).Logger(),
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
	return e, nil
}

// ID returns the game identifier.
func (e *Engine) ID() string { return e.id }

// Mode returns the timer policy of this engine.
func (e *Engine) Mode() Mode { return e.opts.Mode }

// TotalPairs returns N, the number of distinct symbols on the board.
func (e *Engine) TotalPairs() int { return len(e.opts.Symbols) }

// Reset reinitializes the game: stops the timer, invalidates pending callbacks,
// reshuffles, zeroes counters, hides the modal, and re-renders everything.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.resetLocked()
	e.logger.Debug().Msg("game reset")
}

// Flip handles a card click. It reports whether the flip was accepted;
// rejected flips change nothing.
func (e *Engine) Flip(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || id < 0 || id >= len(e.cards) {
		return false
	}
	if e.phase == PhaseEvaluating || e.phase.Finished() {
		return false
	}
	if e.opts.Mode == ModeCountdown && e.remaining <= 0 {
		return false
	}
	if len(e.selection) >= 2 {
		return false
	}
	c := &e.cards[id]
	if c.State != CardHidden {
		return false
	}

	if e.phase == PhaseIdle {
		e.phase = PhaseActive
		e.startTimerLocked()
		e.logger.Debug().Msg("game started")
	}

	c.State = CardFlipped
	e.selection = append(e.selection, id)
	if len(e.selection) > 2 {
		e.violated("selection holds %d cards", len(e.selection))
		e.selection = e.selection[:2]
	}
	e.p.RenderBoard(views(e.cards))

	if len(e.selection) == 2 {
		e.moves++
		e.p.UpdateMoves(e.moves)
		e.phase = PhaseEvaluating
		e.evaluateLocked()
	}
	return true
}

// Key handles a keyboard shortcut. It reports whether the key did anything.
//   - "r" / "R": restart.
//   - "Escape":  close the outcome modal and restart (only while it is shown).
func (e *Engine) Key(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	switch key {
	case "r", "R":
		e.resetLocked()
		return true
	case "Escape":
		if e.modalVisible {
			e.resetLocked()
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		Phase:        e.phase,
		Mode:         e.opts.Mode,
		Cards:        views(e.cards),
		Moves:        e.moves,
		Matches:      e.matches,
		TotalPairs:   len(e.opts.Symbols),
		Time:         e.timeTextLocked(),
		Severity:     e.severityLocked(),
		ModalVisible: e.modalVisible,
	}
	if e.outcome != nil {
		o := *e.outcome
		s.Outcome = &o
	}
	return s
}

// Replay pushes the full display state to the presenter again,
// e.g. for a client that attached after the game began.
func (e *Engine) Replay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderAllLocked()
	if e.modalVisible && e.outcome != nil {
		e.p.ShowOutcomeModal(*e.outcome)
	}
}

// Close stops the timer and retires all pending callbacks for good.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.epoch++
	e.stopTimerLocked()
}

// ------------------------------ internals ----------------------------------

func (e *Engine) resetLocked() {
	e.epoch++
	e.stopTimerLocked()

	e.cards = Shuffle(NewDeck(e.opts.Symbols), e.opts.Rand)
	e.selection = e.selection[:0]
	e.moves, e.matches = 0, 0
	e.elapsed = 0
	e.remaining = int(e.opts.Countdown / time.Second)
	e.phase = PhaseIdle
	e.outcome = nil
	e.modalVisible = false

	e.p.HideOutcomeModal()
	e.renderAllLocked()
}

func (e *Engine) renderAllLocked() {
	e.p.RenderBoard(views(e.cards))
	e.p.UpdateMoves(e.moves)
	e.p.UpdateTimeDisplay(e.timeTextLocked(), e.severityLocked())
	e.p.UpdateMatches(e.matches, len(e.opts.Symbols))
}

// evaluateLocked schedules resolution of the two face-up cards.
func (e *Engine) evaluateLocked() {
	a, b := e.cards[e.selection[0]], e.cards[e.selection[1]]
	match := a.Face == b.Face
	delay := e.opts.MismatchDelay
	if match {
		delay = e.opts.MatchDelay
	}
	epoch := e.epoch
	e.opts.Scheduler.AfterFunc(delay, func() { e.resolve(epoch, match) })
}

func (e *Engine) resolve(epoch uint64, match bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || epoch != e.epoch || e.phase != PhaseEvaluating {
		return
	}
	if len(e.selection) != 2 {
		e.violated("evaluating with %d selected cards", len(e.selection))
		for i := range e.cards {
			if e.cards[i].State == CardFlipped {
				e.cards[i].State = CardHidden
			}
		}
		e.selection = e.selection[:0]
		e.phase = PhaseActive
		e.p.RenderBoard(views(e.cards))
		return
	}

	next := CardHidden
	if match {
		next = CardMatched
	}
	for _, i := range e.selection {
		e.cards[i].State = next
	}
	e.selection = e.selection[:0]

	if match {
		e.matches++
		if total := len(e.opts.Symbols); e.matches > total {
			e.violated("matchCount %d exceeds %d pairs", e.matches, total)
			e.matches = total
		}
		e.p.UpdateMatches(e.matches, len(e.opts.Symbols))
	}
	e.p.RenderBoard(views(e.cards))

	if e.matches == len(e.opts.Symbols) {
		e.winLocked()
		return
	}
	e.phase = PhaseActive
}

func (e *Engine) winLocked() {
	e.phase = PhaseWon
	e.stopTimerLocked()
	e.outcome = &Outcome{
		Kind:       OutcomeWin,
		Message:    PickMessage(e.opts.WinMessages, e.opts.Rand),
		FinalMoves: e.moves,
		FinalTime:  e.timeTextLocked(),
	}
	e.logger.Info().Int("moves", e.moves).Str("time", e.outcome.FinalTime).Msg("game won")

	epoch := e.epoch
	e.opts.Scheduler.AfterFunc(e.opts.WinModalDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || epoch != e.epoch || e.phase != PhaseWon {
			return
		}
		e.modalVisible = true
		e.p.ShowOutcomeModal(*e.outcome)
		e.p.SpawnCelebrationEffect()
	})
}

func (e *Engine) loseLocked() {
	e.phase = PhaseLost
	e.stopTimerLocked()
	e.outcome = &Outcome{
		Kind:       OutcomeLose,
		Message:    PickMessage(e.opts.LoseMessages, e.opts.Rand),
		FinalMoves: e.moves,
		FinalTime:  e.timeTextLocked(),
	}
	e.modalVisible = true
	e.logger.Info().Int("moves", e.moves).Int("matches", e.matches).Msg("game lost")
	e.p.ShowOutcomeModal(*e.outcome)
}

// ------------------------------- timer --------------------------------------

// startTimerLocked is a no-op when the timer already runs.
func (e *Engine) startTimerLocked() {
	if e.timerRunning {
		return
	}
	e.timerRunning = true
	e.scheduleTickLocked()
}

func (e *Engine) scheduleTickLocked() {
	gen := e.timerGen
	e.tick = e.opts.Scheduler.AfterFunc(TickInterval, func() { e.onTick(gen) })
}

func (e *Engine) stopTimerLocked() {
	e.timerRunning = false
	e.timerGen++
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
}

func (e *Engine) onTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.timerRunning || gen != e.timerGen {
		return
	}

	if e.opts.Mode == ModeCountdown {
		e.remaining--
		if e.remaining < 0 {
			e.violated("timeRemaining went negative")
			e.remaining = 0
		}
		e.p.UpdateTimeDisplay(e.timeTextLocked(), e.severityLocked())
		if e.remaining == 0 && (e.phase == PhaseActive || e.phase == PhaseEvaluating) {
			e.loseLocked()
			return
		}
	} else {
		e.elapsed++
		e.p.UpdateTimeDisplay(e.timeTextLocked(), e.severityLocked())
	}
	e.scheduleTickLocked()
}

func (e *Engine) timeTextLocked() string {
	if e.opts.Mode == ModeCountdown {
		return FormatClock(e.remaining)
	}
	return FormatClock(e.elapsed)
}

func (e *Engine) severityLocked() Severity {
	if e.opts.Mode != ModeCountdown {
		return SeverityNormal
	}
	return SeverityFor(e.remaining, int(e.opts.WarnAt/time.Second), int(e.opts.CriticalAt/time.Second))
}

// violated reports a broken internal invariant: fatal for strict engines,
// logged for everyone else (the caller clamps).
func (e *Engine) violated(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.opts.Strict {
		panic("game: invariant violated: " + msg)
	}
	e.logger.Error().Str("invariant", msg).Msg("engine invariant violated")
}
