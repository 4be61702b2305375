// Package reputation derives a user's standing from completed swaps, received
// ratings and endorsements. Everything here is pure; callers supply the counts.
package reputation

import "math"

// Badge is the coarse browse-ranking label.
type Badge string

const (
	BadgeGold   Badge = "Gold"
	BadgeSilver Badge = "Silver"
	BadgeNew    Badge = "New"
)

// Stats are the raw inputs queried from the store.
type Stats struct {
	CompletedSwaps    int64
	RatingSum         int64
	RatingCount       int64
	TotalEndorsements int64
}

// Reputation is the derived, never persisted, view of a user's standing.
type Reputation struct {
	AverageRating     float64 `json:"average_rating"`
	ReviewCount       int64   `json:"review_count"`
	CompletedSwaps    int64   `json:"completed_swaps"`
	TotalEndorsements int64   `json:"total_endorsements"`
	ReputationPoints  float64 `json:"reputation_points"`
	Level             int     `json:"level"`
	Title             string  `json:"title"`
	Color             string  `json:"color"`
	NextLevelXP       float64 `json:"next_level_xp"`
	Progress          float64 `json:"progress"`
	Badge             Badge   `json:"badge"`
}

type tier struct {
	below float64
	level int
	title string
	color string
}

var tiers = []tier{
	{below: 50, level: 1, title: "Novice", color: "text-slate-400"},
	{below: 150, level: 2, title: "Apprentice", color: "text-emerald-500"},
	{below: 400, level: 3, title: "Journeyman", color: "text-sky-500"},
	{below: 1000, level: 4, title: "Expert", color: "text-purple-500"},
}

var topTier = tier{level: 5, title: "Master", color: "text-amber-500"}

// Score is the single ranking formula shared by profiles, listings and the leaderboard.
func Score(averageRating float64, completedSwaps int64) float64 {
	return averageRating*5 + float64(completedSwaps)
}

// AverageRating returns the mean rating, 0 when there are no reviews.
func AverageRating(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// Level maps points to a level, title, color and the XP needed for the next level.
// At the top level the next-level figure plateaus at the current points.
func Level(points float64) (level int, title, color string, nextLevelXP float64) {
	for _, t := range tiers {
		if points < t.below {
			return t.level, t.title, t.color, t.below
		}
	}
	return topTier.level, topTier.title, topTier.color, points
}

// BadgeFor buckets a score into Gold (>= 30), Silver (>= 15) or New.
func BadgeFor(score float64) Badge {
	switch {
	case score >= 30:
		return BadgeGold
	case score >= 15:
		return BadgeSilver
	default:
		return BadgeNew
	}
}

// Compute derives the full reputation from stats.
func Compute(s Stats) Reputation {
	// Points derive from the rounded average so the reported figures satisfy
	// points == average*5 + swaps exactly.
	avg := roundTo(AverageRating(s.RatingSum, s.RatingCount), 2)
	points := Score(avg, s.CompletedSwaps)
	level, title, color, next := Level(points)

	return Reputation{
		AverageRating:     avg,
		ReviewCount:       s.RatingCount,
		CompletedSwaps:    s.CompletedSwaps,
		TotalEndorsements: s.TotalEndorsements,
		ReputationPoints:  points,
		Level:             level,
		Title:             title,
		Color:             color,
		NextLevelXP:       next,
		Progress:          progress(points, next),
		Badge:             BadgeFor(points),
	}
}

// progress is the percentage towards the next level, capped at 100.
func progress(points, next float64) float64 {
	if next <= 0 {
		return 0
	}
	return math.Min(100, points/next*100)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
