package engine

import (
	"math"
	"time"

	"github.com/lazypower/caffeine/internal/intake"
)

// DefaultHalfLifeHours is the average adult caffeine half-life.
const DefaultHalfLifeHours = 5.0

// LevelAt returns the caffeine (mg) remaining at target from every dose in
// history, assuming instantaneous absorption and first-order elimination:
//
//	remaining = amount * 0.5^(elapsedHours / halfLife)
//
// Doses taken after target contribute nothing. halfLife is in hours and must
// be positive; callers validate it once at configuration time.
func LevelAt(target time.Time, history []intake.Intake, halfLife float64) float64 {
	total := 0.0
	for _, in := range history {
		elapsed := target.Sub(in.TakenAt).Hours()
		if elapsed < 0 {
			continue
		}
		total += in.AmountMg * math.Pow(0.5, elapsed/halfLife)
	}
	return total
}

// MinSignificantMg is the smallest level that still shows after rounding
// to 2 decimals.
const MinSignificantMg = 0.005

// Significant returns a replay filter that drops intakes whose remaining
// contribution at now has decayed below MinSignificantMg. Intakes stamped
// after now are kept.
func Significant(halfLife float64) intake.Retain {
	return func(in intake.Intake, now time.Time) bool {
		if in.TakenAt.After(now) {
			return true
		}
		return LevelAt(now, []intake.Intake{in}, halfLife) >= MinSignificantMg
	}
}
