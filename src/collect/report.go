package collect

import (
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"github.com/triple000-it/tml-collection/src/rarity"
	"github.com/triple000-it/tml-collection/src/roster"
)

const metricPrefix = "tmlc_"

// ImageStats counts the image outcomes of a run. Successful and Failed add up
// to the number of artists. Artists without an image URL count as failed.
type ImageStats struct {
	Attempted     int            `json:"attempted"`
	Successful    int            `json:"successful"`
	Failed        int            `json:"failed"`
	Degraded      int            `json:"degraded"`
	Reused        int            `json:"reused"`
	Published     int            `json:"published"`
	PublishFailed int            `json:"publish_failed"`
	SuccessRate   float64        `json:"success_rate"`
	FailureKinds  map[string]int `json:"failure_kinds"`
}

// Report is the summary of one collector run. It is written as stats.json.
type Report struct {
	RunID      string    `json:"run_id"`
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	TotalArtists int `json:"total_artists"`
	TotalEvents  int `json:"total_events"`

	Images ImageStats `json:"image_downloads"`

	RarityDistribution map[rarity.Tier]int     `json:"rarity_distribution"`
	RarityPercentages  map[rarity.Tier]float64 `json:"rarity_percentages"`
	RarityFailures     int                     `json:"rarity_failures"`

	TopLegendary []string `json:"top_legendary"`
	TopEpic      []string `json:"top_epic"`
}

func newReport(runID, version string, started time.Time) *Report {
	r := &Report{
		RunID:              runID,
		Version:            version,
		StartedAt:          started,
		RarityDistribution: make(map[rarity.Tier]int, len(rarity.Tiers())),
		RarityPercentages:  make(map[rarity.Tier]float64, len(rarity.Tiers())),
		TopLegendary:       []string{},
		TopEpic:            []string{},
	}
	r.Images.FailureKinds = make(map[string]int)
	for _, tier := range rarity.Tiers() {
		r.RarityDistribution[tier] = 0
	}
	return r
}

func (r *Report) finish(artists []roster.Artist, events []roster.Event, finished time.Time) {
	r.FinishedAt = finished
	r.TotalArtists = len(artists)
	r.TotalEvents = len(events)

	for _, tier := range rarity.Tiers() {
		r.RarityPercentages[tier] = percentOf(r.RarityDistribution[tier], len(artists))
	}
	r.Images.SuccessRate = percentOf(r.Images.Successful, len(artists))

	for _, a := range artists {
		switch {
		case a.Rarity == rarity.Legendary && len(r.TopLegendary) < topListSize:
			r.TopLegendary = append(r.TopLegendary, a.Name)
		case a.Rarity == rarity.Epic && len(r.TopEpic) < topListSize:
			r.TopEpic = append(r.TopEpic, a.Name)
		}
	}
}

func percentOf(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// Log writes the human oriented summary of the run.
func (r *Report) Log(logger zerolog.Logger) {
	dist := zerolog.Dict()
	for _, tier := range rarity.Tiers() {
		dist.Int(string(tier), r.RarityDistribution[tier])
	}

	logger.Info().
		Int("artists", r.TotalArtists).
		Int("events", r.TotalEvents).
		Int("images_successful", r.Images.Successful).
		Int("images_failed", r.Images.Failed).
		Int("images_degraded", r.Images.Degraded).
		Float64("image_success_rate", r.Images.SuccessRate).
		Dict("rarity", dist).
		Strs("top_legendary", r.TopLegendary).
		Strs("top_epic", r.TopEpic).
		Dur("took", r.FinishedAt.Sub(r.StartedAt)).
		Msg("collection finished")
}

// MetricFamilies returns the report as Prometheus metric families, sorted by
// name, for the node exporter textfile collector.
func (r *Report) MetricFamilies() []*dto.MetricFamily {
	families := []*dto.MetricFamily{
		gaugeFamily("artists", "Number of artists in the last run.",
			sample(float64(r.TotalArtists))),
		gaugeFamily("events", "Number of festival editions in the last run.",
			sample(float64(r.TotalEvents))),
		gaugeFamily("image_results", "Artist image outcomes of the last run.",
			sample(float64(r.Images.Successful), "result", "successful"),
			sample(float64(r.Images.Failed), "result", "failed"),
			sample(float64(r.Images.Degraded), "result", "degraded"),
			sample(float64(r.Images.Reused), "result", "reused"),
			sample(float64(r.Images.Published), "result", "published"),
			sample(float64(r.Images.PublishFailed), "result", "publish_failed"),
		),
		gaugeFamily("rarity_failures", "Artists whose classification fell back to common.",
			sample(float64(r.RarityFailures))),
		gaugeFamily("last_run_timestamp_seconds", "Unix time the last run finished.",
			sample(float64(r.FinishedAt.Unix()))),
		gaugeFamily("last_run_duration_seconds", "Duration of the last run.",
			sample(r.FinishedAt.Sub(r.StartedAt).Seconds())),
	}

	var tiers []*dto.Metric
	for _, tier := range rarity.Tiers() {
		tiers = append(tiers,
			sample(float64(r.RarityDistribution[tier]), "tier", string(tier)))
	}
	families = append(families, gaugeFamily("rarity_artists",
		"Number of artists per rarity tier.", tiers...))

	kinds := make([]string, 0, len(r.Images.FailureKinds))
	for kind := range r.Images.FailureKinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var failures []*dto.Metric
	for _, kind := range kinds {
		failures = append(failures,
			sample(float64(r.Images.FailureKinds[kind]), "kind", kind))
	}
	if len(failures) > 0 {
		families = append(families, gaugeFamily("image_failures",
			"Failed artist images by reason.", failures...))
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return families
}

func gaugeFamily(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	fullName := metricPrefix + name
	typ := dto.MetricType_GAUGE
	return &dto.MetricFamily{
		Name:   &fullName,
		Help:   &help,
		Type:   &typ,
		Metric: metrics,
	}
}

// sample returns a gauge sample with the label name/value pairs in labels.
func sample(value float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: &value}}
	for i := 0; i+1 < len(labels); i += 2 {
		name, val := labels[i], labels[i+1]
		m.Label = append(m.Label, &dto.LabelPair{Name: &name, Value: &val})
	}
	return m
}
