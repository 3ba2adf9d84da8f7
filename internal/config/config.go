// internal/config/config.go
//
// Game configuration loaded from YAML.
//
// Resolution order:
//   1. The file named by the caller (GAME_CONFIG), or the embedded assets/game.yaml.
//   2. Empty symbol/message lists are filled from the embedded line lists.
//   3. Zero (or omitted) delays and countdown timings take the engine defaults.
//   4. A non-empty mode override (GAME_MODE) replaces the file's mode.
//
// Durations are Go duration strings ("600ms", "60s").

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/emoji-memory/assets"
	"github.com/robalobadob/emoji-memory/internal/game"
)

// Delays are the UX pauses of the evaluator and the win modal.
type Delays struct {
	Match    time.Duration `yaml:"match"`
	Mismatch time.Duration `yaml:"mismatch"`
	WinModal time.Duration `yaml:"winModal"`
}

// Countdown configures countdown mode.
type Countdown struct {
	Budget     time.Duration `yaml:"budget"`
	WarnAt     time.Duration `yaml:"warnAt"`
	CriticalAt time.Duration `yaml:"criticalAt"`
}

// Messages are the modal message pools.
type Messages struct {
	Win  []string `yaml:"win"`
	Lose []string `yaml:"lose"`
}

// Config is the game configuration shared by every session.
type Config struct {
	Mode      game.Mode `yaml:"mode"`
	Symbols   []string  `yaml:"symbols"`
	Delays    Delays    `yaml:"delays"`
	Countdown Countdown `yaml:"countdown"`
	Messages  Messages  `yaml:"messages"`
}

// Load reads the config at path (embedded default when path is empty),
// fills empty lists from the embedded assets, applies modeOverride, and validates.
func Load(path, modeOverride string) (*Config, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = assets.GameConfig()
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read game config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse game config: %w", err)
	}
	if err := c.fillDefaults(); err != nil {
		return nil, err
	}
	if modeOverride != "" {
		c.Mode = game.Mode(modeOverride)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) fillDefaults() error {
	var err error
	if len(c.Symbols) == 0 {
		if c.Symbols, err = assets.SymbolList(); err != nil {
			return fmt.Errorf("load symbols: %w", err)
		}
	}
	if len(c.Messages.Win) == 0 {
		if c.Messages.Win, err = assets.WinMessages(); err != nil {
			return fmt.Errorf("load win messages: %w", err)
		}
	}
	if len(c.Messages.Lose) == 0 {
		if c.Messages.Lose, err = assets.LoseMessages(); err != nil {
			return fmt.Errorf("load lose messages: %w", err)
		}
	}
	if c.Mode == "" {
		c.Mode = game.ModeElapsed
	}
	for _, d := range []struct {
		v   *time.Duration
		def time.Duration
	}{
		{&c.Delays.Match, game.DefaultMatchDelay},
		{&c.Delays.Mismatch, game.DefaultMismatchDelay},
		{&c.Delays.WinModal, game.DefaultWinModalDelay},
		{&c.Countdown.Budget, game.DefaultCountdown},
		{&c.Countdown.WarnAt, game.DefaultWarnAt},
		{&c.Countdown.CriticalAt, game.DefaultCriticalAt},
	} {
		if *d.v == 0 {
			*d.v = d.def
		}
	}
	return nil
}

// Validate enforces the rules an engine relies on.
func (c *Config) Validate() error {
	if _, ok := game.ParseMode(string(c.Mode)); !ok {
		return fmt.Errorf("invalid mode %q (want %q or %q)", c.Mode, game.ModeElapsed, game.ModeCountdown)
	}
	if err := game.ValidateSymbols(c.Symbols); err != nil {
		return fmt.Errorf("invalid symbols: %w", err)
	}
	if len(c.Messages.Win) == 0 {
		return errors.New("win message pool is empty")
	}
	if c.Mode == game.ModeCountdown {
		if len(c.Messages.Lose) == 0 {
			return errors.New("lose message pool is empty")
		}
		cd := c.Countdown
		if cd.Budget <= 0 || cd.Budget%time.Second != 0 {
			return fmt.Errorf("countdown budget %s must be whole seconds", cd.Budget)
		}
		if cd.CriticalAt <= 0 || cd.CriticalAt > cd.WarnAt || cd.WarnAt >= cd.Budget {
			return fmt.Errorf("countdown thresholds must satisfy 0 < criticalAt (%s) <= warnAt (%s) < budget (%s)",
				cd.CriticalAt, cd.WarnAt, cd.Budget)
		}
	}
	for name, d := range map[string]time.Duration{
		"match":    c.Delays.Match,
		"mismatch": c.Delays.Mismatch,
		"winModal": c.Delays.WinModal,
	} {
		if d < 0 {
			return fmt.Errorf("delay %s is negative", name)
		}
	}
	return nil
}

// EngineOptions maps the config onto engine options. Randomness, scheduling
// and logging are left to the caller.
func (c *Config) EngineOptions() game.Options {
	return game.Options{
		Mode:          c.Mode,
		Symbols:       c.Symbols,
		MatchDelay:    c.Delays.Match,
		MismatchDelay: c.Delays.Mismatch,
		WinModalDelay: c.Delays.WinModal,
		Countdown:     c.Countdown.Budget,
		WarnAt:        c.Countdown.WarnAt,
		CriticalAt:    c.Countdown.CriticalAt,
		WinMessages:   c.Messages.Win,
		LoseMessages:  c.Messages.Lose,
	}
}
