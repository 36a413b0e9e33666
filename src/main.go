// The Main function of the collector. It reads the configuration, loads the
// roster, runs a collection and optionally keeps watching the roster files.
//
// It is in package src because it is imported from the project's root folder.
package src

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/triple000-it/tml-collection/src/art"
	"github.com/triple000-it/tml-collection/src/collect"
	"github.com/triple000-it/tml-collection/src/config"
	"github.com/triple000-it/tml-collection/src/helpers"
	"github.com/triple000-it/tml-collection/src/imagestore"
	"github.com/triple000-it/tml-collection/src/pipeline"
	"github.com/triple000-it/tml-collection/src/publish"
	"github.com/triple000-it/tml-collection/src/roster"
	"github.com/triple000-it/tml-collection/src/scaler"
	"github.com/triple000-it/tml-collection/src/version"
)

// Names of the reference data files in the embedded data directory.
const (
	rosterData = "roster.yaml"
	eventsData = "events.yaml"
)

var (
	configFile  = flag.String("config", "", "Path to the configuration file.")
	outputDir   = flag.String("out", "", "Directory for the output files.")
	imagesDir   = flag.String("images", "", "Directory for the artist images.")
	concurrency = flag.Int("concurrency", 0, "Number of images downloaded at the same time.")
	incremental = flag.Bool("incremental", false, "Reuse images which are already stored.")
	watch       = flag.Bool("watch", false, "Run again every time the roster files change.")
	showVersion = flag.Bool("v", false, "Show version and build information.")
)

// flagKeys maps command line flags to the config keys they override.
var flagKeys = map[string]string{
	"out":         "output_dir",
	"images":      "images_dir",
	"concurrency": "max_concurrent",
	"incremental": "incremental",
}

// Main is the only thing run in the project's root main.go file.
// For all intent and purposes this is the main function. data holds the
// built in roster.yaml and events.yaml.
func Main(data fs.FS) {
	flag.Parse()

	if *showVersion {
		version.Print(os.Stdout)
		return
	}

	if err := run(data); err != nil {
		log.Error().Err(err).Msg("collection failed")
		os.Exit(1)
	}
}

func run(data fs.FS) error {
	setupLogging(zerolog.InfoLevel)

	v := config.New()
	flag.Visit(func(f *flag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if getter, ok := f.Value.(flag.Getter); ok {
			v.Set(key, getter.Get())
		}
	})

	cfg, err := config.Load(v, *configFile)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	setupLogging(level)

	osFs := afero.NewOsFs()
	if cfg.LogFile != "" {
		if err := helpers.SetLogsFile(osFs, cfg.LogFile); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sclr := scaler.New(ctx, scaler.DefaultOptions())
	defer sclr.Cancel()

	store := imagestore.New(osFs, cfg.ImagesDir, cfg.PublicPrefix)
	if err := store.Init(); err != nil {
		return fmt.Errorf("creating image directories: %w", err)
	}

	pub, err := publish.New(cfg.Publish, store)
	if err != nil {
		return err
	}

	client := art.NewClient(cfg.UserAgent, cfg.FetchTimeout, cfg.MaxImageBytes)
	pipe := pipeline.New(client, sclr, store)
	pipe.MaxConcurrent = cfg.MaxConcurrent
	pipe.SkipExisting = cfg.Incremental

	collector := collect.New(pipe, pub, osFs, cfg.OutputDir)

	runOnce := func() error {
		artists, events, err := loadRoster(cfg, data)
		if err != nil {
			return err
		}

		report, err := collector.Run(ctx, artists, events)
		if err != nil {
			return err
		}

		log.Info().
			Str("output_dir", cfg.OutputDir).
			Str("run_id", report.RunID).
			Msg("output written")
		return nil
	}

	if err := runOnce(); err != nil {
		return err
	}

	if !*watch {
		return nil
	}

	paths := watchedFiles(cfg)
	if len(paths) == 0 {
		return errors.New("watch mode needs roster_file or events_file in the configuration")
	}

	// Every run after the first one only fetches what is missing.
	pipe.SkipExisting = true
	err = roster.Watch(ctx, func(path string) {
		if err := runOnce(); err != nil {
			log.Error().Err(err).Str("path", path).Msg("collection after change failed")
		}
	}, paths...)
	if err != nil {
		return fmt.Errorf("watching roster files: %w", err)
	}

	log.Info().Msg("stopped watching roster files")
	return nil
}

// loadRoster reads the reference data and builds the artists. Files set in cfg
// replace the built in ones.
func loadRoster(cfg *config.Config, data fs.FS) ([]roster.Artist, []roster.Event, error) {
	seeds, events, err := roster.LoadFS(data, rosterData, eventsData)
	if err != nil {
		return nil, nil, err
	}

	if cfg.RosterFile != "" {
		seeds, err = loadFile(cfg.RosterFile, roster.LoadSeeds)
		if err != nil {
			return nil, nil, err
		}
	}

	if cfg.EventsFile != "" {
		events, err = loadFile(cfg.EventsFile, roster.LoadEvents)
		if err != nil {
			return nil, nil, err
		}
	}

	builder := roster.NewBuilder(events)
	builder.ReferenceYear = cfg.ReferenceYear

	return builder.Build(seeds), events, nil
}

func loadFile[T any](path string, load func(r io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return load(f)
}

func watchedFiles(cfg *config.Config) []string {
	var paths []string
	for _, p := range []string{cfg.RosterFile, cfg.EventsFile} {
		if p != "" {
			paths = append(paths, filepath.Clean(p))
		}
	}
	return paths
}

// setupLogging writes human readable logs on a terminal and JSON lines
// everywhere else.
func setupLogging(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			FormatLevel: func(i any) string {
				return strings.ToUpper(fmt.Sprintf("%-5s", i))
			},
		})
		return
	}

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
