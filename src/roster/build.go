package roster

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"
)

// DefaultReferenceYear is the last festival year covered by the reference data.
const DefaultReferenceYear = 2024

var (
	slugStrip = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	slugSpace = regexp.MustCompile(`\s+`)
)

var stages = []string{
	"Mainstage",
	"The Library",
	"Crystal Garden",
	"Freedom Stage",
	"Atmosphere",
	"CORE",
	"The Arch",
	"Rose Garden",
	"Youphoria",
	"Rave Cave",
}

var timeSlots = []string{
	"14:00 - 15:00",
	"15:00 - 16:00",
	"16:00 - 17:00",
	"17:00 - 18:00",
	"18:00 - 19:00",
	"19:00 - 20:00",
	"20:00 - 21:00",
	"21:00 - 22:00",
	"22:00 - 23:00",
	"23:00 - 00:00",
}

// Slug derives an artist id from a display name. Everything except ASCII
// letters, digits and white space is dropped, the rest is lower cased and runs
// of white space become a single hyphen.
//
// "Tiësto" becomes "tisto" and "Dimitri Vegas & Like Mike" becomes
// "dimitri-vegas-like-mike".
func Slug(name string) string {
	clean := strings.TrimSpace(slugStrip.ReplaceAllString(name, ""))
	return slugSpace.ReplaceAllString(strings.ToLower(clean), "-")
}

// YearsActive returns the number of years from debut up to and including the
// reference year. Unknown or future debuts give zero.
func YearsActive(debutYear, referenceYear int) int {
	if debutYear <= 0 || debutYear > referenceYear {
		return 0
	}
	return referenceYear - debutYear + 1
}

// Builder turns roster seeds into full artist records.
type Builder struct {
	// ReferenceYear is the latest festival year taken into account.
	ReferenceYear int

	// Now returns the time stamped on created records.
	Now func() time.Time

	events []Event
}

// NewBuilder returns a Builder which places performances at the given events.
func NewBuilder(events []Event) *Builder {
	return &Builder{
		ReferenceYear: DefaultReferenceYear,
		Now:           time.Now,
		events:        events,
	}
}

// Build creates one Artist per seed, in the same order. Duplicate names produce
// duplicate ids; resolving those is left to the caller.
func (b *Builder) Build(seeds []Seed) []Artist {
	artists := make([]Artist, 0, len(seeds))
	for _, seed := range seeds {
		artists = append(artists, b.Artist(seed))
	}
	return artists
}

// Artist builds a single artist record out of a seed.
func (b *Builder) Artist(seed Seed) Artist {
	now := b.Now().UTC()
	id := Slug(seed.Name)

	stageName := seed.StageName
	if stageName == "" {
		stageName = seed.Name
	}

	return Artist{
		ID:                      id,
		Name:                    seed.Name,
		StageName:               stageName,
		RealName:                seed.RealName,
		Biography:               Biography(seed),
		Nationality:             seed.Nationality,
		Genres:                  seed.Genres,
		SocialLinks:             seed.SocialLinks,
		SpotifyMonthlyListeners: seed.SpotifyMonthlyListeners,
		DebutYear:               seed.DebutYear,
		TotalAppearances:        seed.TotalAppearances,
		YearsActive:             YearsActive(seed.DebutYear, b.ReferenceYear),
		ImageURL:                strings.TrimSpace(seed.ImageURL),
		RecordLabel:             seed.RecordLabel,
		Awards:                  seed.Awards,
		Performances:            b.performances(id, seed, now),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
}

// performances generates one entry per appearance. Appearances cycle through
// the years from the debut to the reference year and years without an event
// are skipped. Stage and time slot are picked deterministically from the
// artist id so that repeated runs produce the same history.
func (b *Builder) performances(id string, seed Seed, now time.Time) []Performance {
	span := YearsActive(seed.DebutYear, b.ReferenceYear)
	if span == 0 || seed.TotalAppearances <= 0 {
		return []Performance{}
	}

	byYear := make(map[int]Event, len(b.events))
	for _, ev := range b.events {
		if _, ok := byYear[ev.Year]; !ok {
			byYear[ev.Year] = ev
		}
	}

	perfs := make([]Performance, 0, seed.TotalAppearances)
	for i := 0; i < seed.TotalAppearances; i++ {
		year := seed.DebutYear + i%span
		ev, ok := byYear[year]
		if !ok {
			continue
		}

		perfs = append(perfs, Performance{
			ID:        fmt.Sprintf("%s_%d_%d", id, year, i),
			EventID:   ev.ID,
			EventName: ev.Name,
			Year:      year,
			Stage:     pick(stages, id, "stage", i),
			Date:      ev.StartDate,
			TimeSlot:  pick(timeSlots, id, "slot", i),
			Duration:  "60 minutes",
			EventType: "regular",
			Notes:     fmt.Sprintf("Performance at %s", ev.Name),
			CreatedAt: now,
		})
	}

	return perfs
}

func pick(from []string, id, salt string, i int) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s/%s/%d", id, salt, i)
	return from[h.Sum32()%uint32(len(from))]
}

// Biography writes a short text about the artist from the seed data.
func Biography(seed Seed) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s is a %s DJ and producer known for their %s sound. ",
		seed.Name, seed.Nationality, strings.Join(seed.Genres, ", "))
	fmt.Fprintf(&sb, "Since their debut in %d, they have become a prominent figure "+
		"in the electronic music scene. ", seed.DebutYear)
	fmt.Fprintf(&sb, "With %d appearances at Tomorrowland, they have established "+
		"themselves as a festival favorite. ", seed.TotalAppearances)

	if len(seed.Awards) > 0 {
		fmt.Fprintf(&sb, "Their achievements include %s. ", seed.Awards[0])
	}

	sb.WriteString("Their energetic performances and innovative productions " +
		"continue to captivate audiences worldwide.")

	return sb.String()
}
