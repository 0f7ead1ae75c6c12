// Package config parses process configuration for the MirrorMind commands
// from the environment, an optional .env file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"

	"github.com/teslashibe/go-mirrormind/pkg/announce"
	"github.com/teslashibe/go-mirrormind/pkg/tuning"
)

// Prefix namespaces every environment variable, e.g. MIRROR_WEB_ADDR.
const Prefix = "MIRROR"

// ErrHelp is returned when --help or --version was requested; the usage
// text has already been printed.
var ErrHelp = errors.New("config: help requested")

// Server configures cmd/mirrormind.
type Server struct {
	conf.Version
	Web struct {
		Addr      string `conf:"default::8080"`
		StaticDir string `conf:"default:./web"`
	}
	Log struct {
		Level string `conf:"default:info"`
	}
	Tuning struct {
		File   string `conf:"help:YAML tuning file; loaded at start and written by PUT /api/tuning"`
		Preset string `conf:"default:default"`
	}
	Ingest struct {
		MinInterval time.Duration `conf:"default:66ms"`
	}
	Timeline struct {
		Capacity int `conf:"default:120"`
	}
	Announce struct {
		Verbosity        string `conf:"default:normal"`
		Mode             string `conf:"default:conversation"`
		ExpressionsFirst bool   `conf:"default:true"`
		IncludeEmotion   bool   `conf:"default:false"`
		Interval         string `conf:"default:30s"`
	}
}

// Replay configures cmd/mirror-replay.
type Replay struct {
	conf.Version
	Frames     string        `conf:"required,help:JSONL file of landmark frames"`
	URL        string        `conf:"default:ws://localhost:8080/ws/detector"`
	DetectorID string        `conf:"default:replay"`
	Interval   time.Duration `conf:"default:66ms"`
	Drain      time.Duration `conf:"default:1s"`
	Log        struct {
		Level string `conf:"default:info"`
	}
}

// LoadEnv loads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// Parse fills cfg from defaults, the environment and os.Args. Usage is
// printed and ErrHelp returned for --help and --version.
func Parse(cfg any) error {
	help, err := conf.Parse(Prefix, cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return ErrHelp
		}
		return fmt.Errorf("config: parse: %w", err)
	}
	return nil
}

// String renders cfg for the startup log. Fields tagged noprint are
// omitted.
func String(cfg any) string {
	out, err := conf.String(cfg)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return out
}

// LoadTuning returns the tuning file's contents when it exists, otherwise
// the named preset.
func (s Server) LoadTuning() (tuning.Config, error) {
	if s.Tuning.File != "" {
		if _, err := os.Stat(s.Tuning.File); err == nil {
			return tuning.Load(s.Tuning.File)
		}
	}
	return tuning.Preset(s.Tuning.Preset)
}

// AnnounceSettings converts the announce section and validates it.
func (s Server) AnnounceSettings() (announce.Settings, error) {
	set := announce.Settings{
		Verbosity:        announce.Verbosity(s.Announce.Verbosity),
		Mode:             announce.Mode(s.Announce.Mode),
		ExpressionsFirst: s.Announce.ExpressionsFirst,
		IncludeEmotion:   s.Announce.IncludeEmotion,
		Interval:         announce.Interval(s.Announce.Interval),
	}
	if problems := set.Validate(); len(problems) > 0 {
		return announce.Settings{}, fmt.Errorf("config: announce: %s", strings.Join(problems, "; "))
	}
	return set, nil
}
