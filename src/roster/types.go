package roster

import (
	"time"

	"github.com/triple000-it/tml-collection/src/imagestore"
	"github.com/triple000-it/tml-collection/src/rarity"
)

// SocialLinks are the public profiles of an artist. InstagramFollowers is only
// used as a recognition signal and is zero when unknown.
type SocialLinks struct {
	Instagram  string `json:"instagram,omitempty" yaml:"instagram"`
	Spotify    string `json:"spotify,omitempty" yaml:"spotify"`
	YouTube    string `json:"youtube,omitempty" yaml:"youtube"`
	SoundCloud string `json:"soundcloud,omitempty" yaml:"soundcloud"`
	Facebook   string `json:"facebook,omitempty" yaml:"facebook"`
	Twitter    string `json:"twitter,omitempty" yaml:"twitter"`

	InstagramFollowers int64 `json:"instagram_followers,omitempty" yaml:"instagram_followers"`
}

// Seed is one entry of the curated roster as it is written in the reference data.
type Seed struct {
	Name                    string      `yaml:"name"`
	StageName               string      `yaml:"stage_name"`
	RealName                string      `yaml:"real_name"`
	Nationality             string      `yaml:"nationality"`
	Genres                  []string    `yaml:"genres"`
	DebutYear               int         `yaml:"debut_year"`
	TotalAppearances        int         `yaml:"total_appearances"`
	ImageURL                string      `yaml:"image_url"`
	SocialLinks             SocialLinks `yaml:"social_links"`
	SpotifyMonthlyListeners int64       `yaml:"spotify_monthly_listeners"`
	RecordLabel             string      `yaml:"record_label"`
	Awards                  []string    `yaml:"awards"`
}

// Event is a single festival edition.
type Event struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Year      int    `json:"year" yaml:"year"`
	Location  string `json:"location" yaml:"location"`
	StartDate string `json:"start_date" yaml:"start_date"`
	EndDate   string `json:"end_date" yaml:"end_date"`
	URL       string `json:"url,omitempty" yaml:"url"`
	Type      string `json:"type" yaml:"type"`
	Country   string `json:"country" yaml:"country"`
}

// Performance is one appearance of an artist at an event. It is never changed
// after it has been generated.
type Performance struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
	Year      int       `json:"year"`
	Stage     string    `json:"stage"`
	Date      string    `json:"date"`
	TimeSlot  string    `json:"time_slot"`
	Duration  string    `json:"duration"`
	EventType string    `json:"event_type"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Artist is the full record of a performer. The rarity and image fields are
// filled in by the collector.
type Artist struct {
	ID                      string        `json:"id"`
	Name                    string        `json:"name"`
	StageName               string        `json:"stage_name"`
	RealName                string        `json:"real_name"`
	Biography               string        `json:"biography"`
	Nationality             string        `json:"nationality"`
	Genres                  []string      `json:"genres"`
	SocialLinks             SocialLinks   `json:"social_links"`
	SpotifyMonthlyListeners int64         `json:"spotify_monthly_listeners,omitempty"`
	DebutYear               int           `json:"debut_year"`
	TotalAppearances        int           `json:"total_appearances"`
	YearsActive             int           `json:"years_active"`
	ImageURL                string        `json:"image_url,omitempty"`
	RecordLabel             string        `json:"record_label"`
	Awards                  []string      `json:"awards"`
	Performances            []Performance `json:"performances"`

	Rarity           rarity.Tier        `json:"rarity,omitempty"`
	RarityPercentage float64            `json:"rarity_percentage,omitempty"`
	RarityStats      *rarity.Info       `json:"rarity_stats,omitempty"`
	ImagePaths       *imagestore.Bundle `json:"image_paths,omitempty"`
	HasImage         bool               `json:"has_image"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RarityInput returns the parts of the artist which rarity.Classify looks at.
func (a *Artist) RarityInput() rarity.Input {
	perfs := make([]rarity.Performance, 0, len(a.Performances))
	for _, p := range a.Performances {
		perfs = append(perfs, rarity.Performance{
			Stage:     p.Stage,
			Notes:     p.Notes,
			EventType: p.EventType,
		})
	}

	return rarity.Input{
		TotalAppearances:        a.TotalAppearances,
		YearsActive:             a.YearsActive,
		Performances:            perfs,
		InstagramFollowers:      a.SocialLinks.InstagramFollowers,
		SpotifyMonthlyListeners: a.SpotifyMonthlyListeners,
		Awards:                  a.Awards,
		RecordLabel:             a.RecordLabel,
	}
}

// ApplyRarity stores a classification result on the artist.
func (a *Artist) ApplyRarity(res rarity.Result) {
	info := res.Info
	a.Rarity = res.Tier
	a.RarityPercentage = res.Percentage
	a.RarityStats = &info
}
