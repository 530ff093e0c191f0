package engine

import (
	"math"
	"time"

	"github.com/lazypower/caffeine/internal/intake"
)

const (
	SeriesStep    = 5 * time.Minute
	SeriesLead    = time.Hour      // shown before the first dose
	SeriesHorizon = 24 * time.Hour // projected past now
)

// Point is one sample of the decay curve.
type Point struct {
	At      time.Time `json:"at"`
	LevelMg float64   `json:"level_mg"`
}

// GenerateSeries samples LevelAt every SeriesStep from one hour before the
// earliest dose through now+24h, inclusive. Levels are rounded to 2 decimals
// so repeated runs over the same inputs compare equal. An empty history
// yields nil.
func GenerateSeries(history []intake.Intake, halfLife float64, now time.Time) []Point {
	if len(history) == 0 {
		return nil
	}

	earliest := history[0].TakenAt
	for _, in := range history[1:] {
		if in.TakenAt.Before(earliest) {
			earliest = in.TakenAt
		}
	}

	start := earliest.Add(-SeriesLead)
	end := now.Add(SeriesHorizon)
	if end.Before(start) {
		return nil
	}

	n := int(end.Sub(start)/SeriesStep) + 1
	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		at := start.Add(time.Duration(i) * SeriesStep)
		points = append(points, Point{
			At:      at,
			LevelMg: round2(LevelAt(at, history, halfLife)),
		})
	}
	return points
}

func round2(v float64) float64 {
	scaled := v * 100
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.Round(scaled) / 100
}
