package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/labelbook/internal/failure"
)

// Default settle parameters for locale switches.
const (
	DefaultSettleDelay    = 500 * time.Millisecond
	DefaultSettleAttempts = 5
)

// ErrLocaleNotSettled is returned when the repository never reports the
// requested locale as active.
var ErrLocaleNotSettled = errors.New("locale switch did not take effect")

// sweepMu serializes sweeps within the process. The operator's active locale
// is a single shared resource.
var sweepMu sync.Mutex

// Snapshot describes the locale a sweep step runs under.
type Snapshot struct {
	Language int
	// Base is true for the repository's base language. Only the base
	// snapshot may set structural values; others add translations.
	Base bool
}

// SweepFunc fetches content for one snapshot.
type SweepFunc func(ctx context.Context, snap Snapshot) error

// Sweeper re-fetches locale-bound content once per language by switching the
// operator's active locale, and always switches it back.
type Sweeper struct {
	repo           Repository
	settleDelay    time.Duration
	settleAttempts int
	logger         *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSettle sets how long to wait after a switch and how many times to
// re-check the active locale.
func WithSettle(delay time.Duration, attempts int) SweeperOption {
	return func(s *Sweeper) {
		s.settleDelay = delay
		if attempts > 0 {
			s.settleAttempts = attempts
		}
	}
}

// WithSweepLogger sets the logger.
func WithSweepLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = l }
}

// NewSweeper creates a Sweeper over repo.
func NewSweeper(repo Repository, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:           repo,
		settleDelay:    DefaultSettleDelay,
		settleAttempts: DefaultSettleAttempts,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepOrder returns the base language followed by the requested languages,
// without duplicates.
func SweepOrder(base int, languages []int) []int {
	order := []int{base}
	seen := map[int]bool{base: true}
	for _, l := range languages {
		if l <= 0 || seen[l] {
			continue
		}
		seen[l] = true
		order = append(order, l)
	}
	return order
}

// Sweep calls fn once per language, base language first, with the
// repository's active locale set to that language.
//
// The operator's original locale is restored on every exit path. A failed
// restore is a LocaleRestoreFailure joined with whatever fn returned.
func (s *Sweeper) Sweep(ctx context.Context, languages []int, fn SweepFunc) (err error) {
	sweepMu.Lock()
	defer sweepMu.Unlock()

	original, err := s.repo.UserLanguage(ctx)
	if err != nil {
		return failure.Fetch("get user language", "", err)
	}
	base, err := s.repo.BaseLanguage(ctx)
	if err != nil {
		return failure.Fetch("get base language", "", err)
	}

	active := original
	switched := false
	defer func() {
		if !switched {
			return
		}
		rctx := context.WithoutCancel(ctx)
		if rerr := s.switchTo(rctx, original); rerr != nil {
			s.logger.Error("failed to restore user language",
				"language", original,
				"severity", failure.LocaleRestoreFailure.Severity(),
				"error", rerr,
			)
			err = errors.Join(err, failure.LocaleRestore(original, rerr))
			return
		}
		s.logger.Debug("user language restored", "language", original)
	}()

	for _, lang := range SweepOrder(base, languages) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lang != active {
			switched = true
			if err := s.switchTo(ctx, lang); err != nil {
				return failure.Fetch("switch user language", fmt.Sprint(lang), err)
			}
			active = lang
		}

		s.logger.Debug("sweeping language", "language", lang, "base", lang == base)
		if err := fn(ctx, Snapshot{Language: lang, Base: lang == base}); err != nil {
			return fmt.Errorf("sweep language %d: %w", lang, err)
		}
	}
	return nil
}

// switchTo sets the active locale and waits until the repository reports it.
func (s *Sweeper) switchTo(ctx context.Context, lang int) error {
	if err := s.repo.SetUserLanguage(ctx, lang); err != nil {
		return err
	}
	for i := 0; i < s.settleAttempts; i++ {
		if s.settleDelay > 0 {
			t := time.NewTimer(s.settleDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		current, err := s.repo.UserLanguage(ctx)
		if err != nil {
			return err
		}
		if current == lang {
			return nil
		}
	}
	return fmt.Errorf("%w: want %d", ErrLocaleNotSettled, lang)
}
