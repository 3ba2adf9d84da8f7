// internal/game/types.go
//
// Core type definitions for the memory-match engine.
// Defines:
//   - CardState / Phase / Mode / Severity / OutcomeKind enums.
//   - Card: one position on the board.
//   - CardView / Snapshot: client-facing read-only views of the game.
//   - Presenter: the display hooks the engine drives.

package game

import "time"

// CardState is the lifecycle state of a single card.
type CardState string

const (
	CardHidden  CardState = "hidden"
	CardFlipped CardState = "flipped"
	CardMatched CardState = "matched"
)

// Phase is the coarse state of a game.
//   - idle:       board dealt, no card flipped yet, timer not running.
//   - active:     accepting flips.
//   - evaluating: two cards face-up, waiting on the match/mismatch delay.
//   - won / lost: finished; only reset leaves these.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseActive     Phase = "active"
	PhaseEvaluating Phase = "evaluating"
	PhaseWon        Phase = "won"
	PhaseLost       Phase = "lost"
)

// Finished reports whether the phase is terminal.
func (p Phase) Finished() bool { return p == PhaseWon || p == PhaseLost }

// Mode selects the timer policy.
//   - elapsed:   count up from 00:00, no loss condition.
//   - countdown: count down from a fixed budget; reaching zero loses.
type Mode string

const (
	ModeElapsed   Mode = "elapsed"
	ModeCountdown Mode = "countdown"
)

// ParseMode maps a config/env string to a Mode. Unknown values yield ok=false.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeElapsed, ModeCountdown:
		return Mode(s), true
	}
	return "", false
}

// Severity is the display urgency of the time readout.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// OutcomeKind distinguishes the two end-of-game modals.
type OutcomeKind string

const (
	OutcomeWin  OutcomeKind = "win"
	OutcomeLose OutcomeKind = "lose"
)

// Card is a single board position.
type Card struct {
	ID    int       // Stable position index (0..2N-1).
	Face  string    // Face value (symbol); two cards share each value.
	State CardState // hidden / flipped / matched.
}

// CardView is the client-facing representation of a card.
// Face is only exposed while the card is face-up or matched.
type CardView struct {
	ID    int       `json:"id"`
	Face  string    `json:"face,omitempty"`
	State CardState `json:"state"`
}

// Outcome is the payload of the end-of-game modal.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Message    string      `json:"message"`
	FinalMoves int         `json:"finalMoves"`
	FinalTime  string      `json:"finalTime"`
}

// Snapshot is a read-only copy of a game, safe to serialize.
type Snapshot struct {
	Phase        Phase      `json:"phase"`
	Mode         Mode       `json:"mode"`
	Cards        []CardView `json:"cards"`
	Moves        int        `json:"moves"`
	Matches      int        `json:"matches"`
	TotalPairs   int        `json:"totalPairs"`
	Time         string     `json:"time"`
	Severity     Severity   `json:"severity"`
	ModalVisible bool       `json:"modalVisible"`
	Outcome      *Outcome   `json:"outcome,omitempty"`
}

// Presenter receives display updates from the engine.
// Hooks run while the engine holds its lock; implementations must not call back into the engine.
type Presenter interface {
	RenderBoard(cards []CardView)
	UpdateMoves(count int)
	UpdateTimeDisplay(text string, severity Severity)
	UpdateMatches(count, total int)
	ShowOutcomeModal(o Outcome)
	HideOutcomeModal()
	SpawnCelebrationEffect()
}

// Timer is a pending deferred callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs deferred callbacks. The engine never blocks on a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// realScheduler defers through the runtime timer heap.
type realScheduler struct{}

// AfterFunc wraps time.AfterFunc; *time.Timer satisfies Timer.
func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealScheduler returns the wall-clock Scheduler.
func RealScheduler() Scheduler { return realScheduler{} }
