package rarity

import (
	"strings"

	"golang.org/x/text/cases"
)

// Weights of the composite score formula.
const (
	weightAppearances   = 1.0
	weightYearsActive   = 0.5
	weightMainStage     = 2.0
	weightSpecialEvents = 3.0
	weightInternational = 1.5
)

// Score thresholds for each tier. An artist also qualifies for a tier through
// the raw appearance and years counts in tierFallbacks.
const (
	ThresholdLegendary = 25.0
	ThresholdEpic      = 15.0
	ThresholdRare      = 8.0
)

// MinPercentage is the lowest percentage Classify ever returns.
const MinPercentage = 0.1

var mainStages = []string{
	"mainstage",
	"main stage",
	"tomorrowland mainstage",
	"the library",
	"crystal garden",
}

var specialEvents = []string{
	"closing ceremony",
	"opening ceremony",
	"mainstage closing",
	"mainstage opening",
	"special guest",
	"surprise performance",
	"anniversary performance",
	"record breaking set",
}

var majorLabels = []string{
	"spinnin records",
	"armada music",
	"revealed recordings",
	"musical freedom",
	"protocol recordings",
}

// MainStages returns the stage names which count as main stage performances.
func MainStages() []string {
	return append([]string(nil), mainStages...)
}

// SpecialEvents returns the phrases which mark a performance as a special event.
func SpecialEvents() []string {
	return append([]string(nil), specialEvents...)
}

// MajorLabels returns the record labels which give an international bonus.
func MajorLabels() []string {
	return append([]string(nil), majorLabels...)
}

// Performance is the part of a single festival appearance which the scoring
// looks at.
type Performance struct {
	Stage     string
	Notes     string
	EventType string
}

// Input holds everything Classify needs to know about an artist. Zero values
// are valid and mean "no data".
type Input struct {
	TotalAppearances int
	YearsActive      int
	Performances     []Performance

	InstagramFollowers      int64
	SpotifyMonthlyListeners int64
	Awards                  []string
	RecordLabel             string
}

// Score is the breakdown of the composite score.
type Score struct {
	MainStage     int     `json:"main_stage_count"`
	SpecialEvents int     `json:"special_events_count"`
	International int     `json:"international_bonus"`
	Total         float64 `json:"total_score"`
}

// Result is the outcome of classifying a single artist.
type Result struct {
	Tier       Tier    `json:"tier"`
	Percentage float64 `json:"percentage"`
	Info       Info    `json:"tier_metadata"`
	Score      Score   `json:"score"`
}

// Classify computes the rarity tier and percentage for an artist. It never fails.
// Missing or negative values count as zero and lead to the Common tier.
//
// The composite score is
//
//	appearances*1.0 + years_active*0.5 + main_stage*2.0 +
//	special_events*3.0 + international_bonus*1.5
func Classify(in Input) Result {
	appearances := nonNegative(in.TotalAppearances)
	years := nonNegative(in.YearsActive)

	score := Score{
		MainStage:     countMainStage(in.Performances),
		SpecialEvents: countSpecialEvents(in.Performances),
		International: internationalBonus(in),
	}
	score.Total = float64(appearances)*weightAppearances +
		float64(years)*weightYearsActive +
		float64(score.MainStage)*weightMainStage +
		float64(score.SpecialEvents)*weightSpecialEvents +
		float64(score.International)*weightInternational

	tier := tierFor(score.Total, appearances, years)

	return Result{
		Tier:       tier,
		Percentage: percentageFor(tier, appearances),
		Info:       tier.Info(),
		Score:      score,
	}
}

// tierFor maps a score and the raw counts to a tier. Tiers are checked from the
// rarest and the first one which matches wins.
func tierFor(score float64, appearances, years int) Tier {
	switch {
	case score >= ThresholdLegendary || (appearances >= 10 && years >= 5):
		return Legendary
	case score >= ThresholdEpic || (appearances >= 5 && years >= 3):
		return Epic
	case score >= ThresholdRare || (appearances >= 2 && years >= 2):
		return Rare
	default:
		return Common
	}
}

// percentageFor lowers the tier's base percentage for artists with many
// appearances. Only the highest matching appearance step of a tier applies.
func percentageFor(tier Tier, appearances int) float64 {
	pct := basePercentage[tier]

	switch tier {
	case Legendary:
		switch {
		case appearances >= 20:
			pct -= 1.5
		case appearances >= 15:
			pct -= 1.0
		}
	case Epic:
		if appearances >= 8 {
			pct -= 2.0
		}
	case Rare:
		if appearances >= 4 {
			pct -= 3.0
		}
	}

	if pct < MinPercentage {
		return MinPercentage
	}
	return pct
}

func countMainStage(performances []Performance) int {
	var count int
	for _, p := range performances {
		if containsAny(fold(p.Stage), mainStages) {
			count++
		}
	}
	return count
}

// countSpecialEvents counts performances which mention a special event in their
// notes or event type. A performance counts once no matter how many phrases match.
func countSpecialEvents(performances []Performance) int {
	var count int
	for _, p := range performances {
		notes := fold(p.Notes)
		eventType := fold(p.EventType)

		for _, phrase := range specialEvents {
			if strings.Contains(notes, phrase) || strings.Contains(eventType, phrase) {
				count++
				break
			}
		}
	}
	return count
}

func internationalBonus(in Input) int {
	var bonus int

	switch {
	case in.InstagramFollowers > 1_000_000:
		bonus += 2
	case in.InstagramFollowers > 500_000:
		bonus++
	}

	switch {
	case in.SpotifyMonthlyListeners > 5_000_000:
		bonus += 2
	case in.SpotifyMonthlyListeners > 1_000_000:
		bonus++
	}

	bonus += len(in.Awards)

	if containsAny(fold(in.RecordLabel), majorLabels) {
		bonus++
	}

	return bonus
}

// fold returns the case folded form of s. A new Caser is used for every call
// since they are not safe for concurrent use.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
