package roster

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

type seedsFile struct {
	Artists []Seed `yaml:"artists"`
}

type eventsFile struct {
	Events []Event `yaml:"events"`
}

// LoadSeeds parses a YAML roster with a top level `artists` list.
func LoadSeeds(r io.Reader) ([]Seed, error) {
	var doc seedsFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("roster: parse artists yaml: %w", err)
	}

	for i, seed := range doc.Artists {
		if strings.TrimSpace(seed.Name) == "" {
			return nil, fmt.Errorf("roster: artists[%d]: name is required", i)
		}
		if seed.TotalAppearances < 0 {
			return nil, fmt.Errorf("roster: artists[%d] %q: negative total_appearances",
				i, seed.Name)
		}
	}

	return doc.Artists, nil
}

// LoadEvents parses a YAML list of festival editions with a top level `events`
// list. Missing ids, types and countries are derived from the other fields.
func LoadEvents(r io.Reader) ([]Event, error) {
	var doc eventsFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("roster: parse events yaml: %w", err)
	}

	for i := range doc.Events {
		ev := &doc.Events[i]
		if ev.Year <= 0 {
			return nil, fmt.Errorf("roster: events[%d] %q: year is required", i, ev.Name)
		}
		if ev.ID == "" {
			ev.ID = fmt.Sprintf("tml_%d_%d", ev.Year, i)
		}
		if ev.Type == "" {
			ev.Type = "summer"
			if strings.Contains(ev.Name, "Winter") {
				ev.Type = "winter"
			}
		}
		if ev.Country == "" {
			ev.Country = countryOf(ev.Location)
		}
	}

	return doc.Events, nil
}

// LoadFS reads the seeds and events from two files in fsys.
func LoadFS(fsys fs.FS, seedsPath, eventsPath string) ([]Seed, []Event, error) {
	sf, err := fsys.Open(seedsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("roster: open %s: %w", seedsPath, err)
	}
	defer sf.Close()

	seeds, err := LoadSeeds(sf)
	if err != nil {
		return nil, nil, err
	}

	ef, err := fsys.Open(eventsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("roster: open %s: %w", eventsPath, err)
	}
	defer ef.Close()

	events, err := LoadEvents(ef)
	if err != nil {
		return nil, nil, err
	}

	return seeds, events, nil
}

// countryOf returns the last comma separated part of a location such as
// "Boom, Belgium".
func countryOf(location string) string {
	idx := strings.LastIndex(location, ",")
	return strings.TrimSpace(location[idx+1:])
}
