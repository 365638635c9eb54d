package main

import (
	"os"
	"time"

	"github.com/ahmedkamals/visstream/internal/errors"
	"github.com/pelletier/go-toml/v2"
)

type (
	// Config of the viewer. Command line flags override the file.
	Config struct {
		Listen         string   `toml:"listen"`
		Sources        []string `toml:"sources"`
		Watch          []string `toml:"watch"`
		Autopause      bool     `toml:"autopause"`
		KeepAttributes bool     `toml:"keep_attributes"`
		FixOrientation bool     `toml:"fix_orientation"`
		Window         Window   `toml:"window"`
		PumpInterval   Duration `toml:"pump_interval"`
		WatchDelay     Duration `toml:"watch_delay"`
		Color          bool     `toml:"color"`
		ScreenshotDir  string   `toml:"screenshot_dir"`
	}

	// Window geometry and title.
	Window struct {
		Width  int    `toml:"width"`
		Height int    `toml:"height"`
		Title  string `toml:"title"`
	}

	// Duration reads durations such as "100ms" from TOML strings.
	Duration struct {
		time.Duration
	}
)

const (
	defaultListen       = "localhost:19916"
	defaultPumpInterval = 100 * time.Millisecond
)

func defaultConfig() Config {
	return Config{
		Listen: defaultListen,
		Window: Window{
			Width:  400,
			Height: 350,
			Title:  "visstream",
		},
		PumpInterval: Duration{defaultPumpInterval},
		WatchDelay:   Duration{50 * time.Millisecond},
		Color:        true,
	}
}

// loadConfig reads path over the defaults. An empty path keeps the defaults.
func loadConfig(path string) (Config, error) {
	const op errors.Operation = "config.load"

	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, errors.E(op, errors.Failure, err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, errors.E(op, errors.Invalid, err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	const op errors.Operation = "Config.validate"

	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.E(op, errors.Invalid, errors.Errorf("bad window size %dx%d", c.Window.Width, c.Window.Height))
	case c.PumpInterval.Duration <= 0:
		return errors.E(op, errors.Invalid, errors.Errorf("pump_interval must be positive"))
	case c.WatchDelay.Duration < 0:
		return errors.E(op, errors.Invalid, errors.Errorf("watch_delay must not be negative"))
	}

	return nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = duration

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
