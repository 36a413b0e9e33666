package collect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/triple000-it/tml-collection/src/rarity"
	"github.com/triple000-it/tml-collection/src/roster"
)

// Names of the files written into the output directory.
const (
	ArtistsFile   = "artists.jsonl"
	EventsFile    = "events.jsonl"
	DBArtistsFile = "db_artists.json"
	DBEventsFile  = "db_events.json"
	StatsFile     = "stats.json"
	MetricsFile   = "stats.prom"
)

// DBArtist is the database ready projection of an artist.
type DBArtist struct {
	ID               string             `json:"id"`
	StageName        string             `json:"stage_name"`
	RealName         string             `json:"real_name"`
	Biography        string             `json:"biography"`
	Nationality      string             `json:"nationality"`
	Genres           []string           `json:"genres"`
	SocialLinks      roster.SocialLinks `json:"social_links"`
	DebutYear        int                `json:"debut_year"`
	TotalAppearances int                `json:"total_appearances"`
	ImageURL         string             `json:"image_url"`
	Rarity           rarity.Tier        `json:"rarity"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// DBEvent is the database ready projection of a festival edition.
type DBEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	Location  string `json:"location"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Type      string `json:"type"`
	Country   string `json:"country"`
}

// Writer writes the result files of a run.
type Writer struct {
	fs  afero.Fs
	dir string
}

// NewWriter returns a Writer for the directory dir in fs.
func NewWriter(fs afero.Fs, dir string) *Writer {
	return &Writer{fs: fs, dir: dir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteAll writes every output file. Each file is replaced atomically so a
// reader never sees a half written file.
func (w *Writer) WriteAll(
	artists []roster.Artist,
	events []roster.Event,
	report *Report,
) error {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}

	files := []struct {
		name   string
		encode func() ([]byte, error)
	}{
		{ArtistsFile, func() ([]byte, error) { return jsonLines(artists) }},
		{EventsFile, func() ([]byte, error) { return jsonLines(events) }},
		{DBArtistsFile, func() ([]byte, error) { return indented(dbArtists(artists)) }},
		{DBEventsFile, func() ([]byte, error) { return indented(dbEvents(events)) }},
		{StatsFile, func() ([]byte, error) { return indented(report) }},
		{MetricsFile, report.metricsText},
	}

	for _, f := range files {
		data, err := f.encode()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", f.name, err)
		}
		if err := w.write(f.name, data); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		log.Debug().Str("file", f.name).Int("bytes", len(data)).Msg("wrote output")
	}

	return nil
}

func (w *Writer) write(name string, data []byte) error {
	dst := filepath.Join(w.dir, name)

	tmp, err := afero.TempFile(w.fs, w.dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = w.fs.Rename(tmpName, dst)
	}
	if err != nil {
		_ = w.fs.Remove(tmpName)
		return err
	}
	return nil
}

func jsonLines[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func indented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Report) metricsText() ([]byte, error) {
	var buf bytes.Buffer
	for _, mf := range r.MetricFamilies() {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func dbArtists(artists []roster.Artist) []DBArtist {
	out := make([]DBArtist, 0, len(artists))
	for _, a := range artists {
		var imageURL string
		if a.HasImage && a.ImagePaths != nil {
			imageURL = a.ImagePaths.WebPath
		}

		out = append(out, DBArtist{
			ID:               a.ID,
			StageName:        a.StageName,
			RealName:         a.RealName,
			Biography:        a.Biography,
			Nationality:      a.Nationality,
			Genres:           a.Genres,
			SocialLinks:      a.SocialLinks,
			DebutYear:        a.DebutYear,
			TotalAppearances: a.TotalAppearances,
			ImageURL:         imageURL,
			Rarity:           a.Rarity,
			CreatedAt:        a.CreatedAt,
			UpdatedAt:        a.UpdatedAt,
		})
	}
	return out
}

func dbEvents(events []roster.Event) []DBEvent {
	out := make([]DBEvent, 0, len(events))
	for _, e := range events {
		out = append(out, DBEvent{
			ID:        e.ID,
			Name:      e.Name,
			Year:      e.Year,
			Location:  e.Location,
			StartDate: e.StartDate,
			EndDate:   e.EndDate,
			Type:      e.Type,
			Country:   e.Country,
		})
	}
	return out
}
