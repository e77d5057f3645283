// Package config loads bookingbot configuration.
//
// Precedence, highest first: explicit flags (applied by commands), environment
// variables with the BOOKINGBOT_ prefix, an optional YAML config file, and
// built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Portal    PortalConfig    `mapstructure:"portal"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Locations string          `mapstructure:"locations"`
	Submit    SubmitConfig    `mapstructure:"submit"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Status    StatusConfig    `mapstructure:"status"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PortalConfig locates the remote booking portal.
type PortalConfig struct {
	// TripsURL is the landing page used for manual login.
	TripsURL string `mapstructure:"trips_url"`

	// CreateURL is the multi-step booking creation form.
	CreateURL string `mapstructure:"create_url"`
}

// BrowserConfig controls the automation client session.
type BrowserConfig struct {
	// UserDataDir persists the authenticated browser session between runs.
	UserDataDir string `mapstructure:"user_data_dir"`

	// Headless runs the browser without a window. Interactive login
	// requires a visible window, so this defaults to false.
	Headless bool `mapstructure:"headless"`
}

// SubmitConfig tunes the form submission protocol.
type SubmitConfig struct {
	// ReadyTimeout bounds each wait for a form control to become
	// interactable.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`

	// ConfirmTimeout bounds the wait for the post-submission
	// confirmation signal.
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`

	// ConfirmText is the visible text that confirms a submission was
	// accepted.
	ConfirmText string `mapstructure:"confirm_text"`

	// Annotation is the fixed value entered into the detail step's
	// free-text field.
	Annotation string `mapstructure:"annotation"`

	// CountryCode is rewritten to the local trunk-zero form when it
	// prefixes a contact number.
	CountryCode string `mapstructure:"country_code"`

	// DiagnosticsDir receives screenshots and page text captured on
	// failed submissions.
	DiagnosticsDir string `mapstructure:"diagnostics_dir"`
}

// SchedulerConfig tunes the cooperative scheduler.
type SchedulerConfig struct {
	// Slice is the interruptible wait granularity; a stop request is
	// honored within roughly one slice.
	Slice time.Duration `mapstructure:"slice"`

	// PacePerMinute caps record submissions per minute. Zero disables
	// pacing.
	PacePerMinute float64 `mapstructure:"pace_per_minute"`
}

// StatusConfig controls the optional local progress endpoint.
type StatusConfig struct {
	// Addr is the listen address (e.g. "127.0.0.1:8765"). Empty
	// disables the endpoint.
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const envPrefix = "BOOKINGBOT"

// Load reads configuration from defaults, an optional config file, and the
// environment. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("portal.trips_url", "https://corporate.business.icabbi.com/trips/all-trips")
	v.SetDefault("portal.create_url", "https://corporate.business.icabbi.com/create-v2")

	v.SetDefault("browser.user_data_dir", ".bookingbot/browser")
	v.SetDefault("browser.headless", false)

	v.SetDefault("locations", "metro-locations.yaml")

	v.SetDefault("submit.ready_timeout", 10*time.Second)
	v.SetDefault("submit.confirm_timeout", 15*time.Second)
	v.SetDefault("submit.confirm_text", "Booking created")
	v.SetDefault("submit.annotation", "Metro")
	v.SetDefault("submit.country_code", "61")
	v.SetDefault("submit.diagnostics_dir", ".bookingbot/diagnostics")

	v.SetDefault("scheduler.slice", 100*time.Millisecond)
	v.SetDefault("scheduler.pace_per_minute", 0.0)

	v.SetDefault("status.addr", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
