package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

const (
	xdgAppName = "gcal-sync"
	configFile = "config.yml"
)

// ValidationError is fatal: a run never starts on an invalid config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Problems, "; "))
}

// Config is the statically declared schema, validated at the load boundary.
type Config struct {
	Settings     Settings      `yaml:"settings"`
	Options      Options       `yaml:"options"`
	TickTickSync *TickTickSync `yaml:"ticktick_sync,omitempty"`
	GitHubSync   *GitHubSync   `yaml:"github_sync,omitempty"`
}

type Settings struct {
	SyncFunction       string `yaml:"sync_function"`
	TimezoneCorrection int    `yaml:"timezone_correction"`
	UpdateFrequency    int    `yaml:"update_frequency"`
}

type Options struct {
	ShowLogs          bool `yaml:"show_logs"`
	MaintenanceMode   bool `yaml:"maintenance_mode"`
	DailySummaryEmail bool `yaml:"daily_summary_email"`
	EmailErrors       bool `yaml:"email_errors"`
	EmailSession      bool `yaml:"email_session"`
	EmailNewRelease   bool `yaml:"email_new_release"`
}

type TickTickSync struct {
	ICSCalendars []ICSCalendar `yaml:"ics_calendars"`
}

type ICSCalendar struct {
	Link         string   `yaml:"link"`
	Calendar     string   `yaml:"gcal"`
	DoneCalendar string   `yaml:"gcal_done"`
	Tag          string   `yaml:"tag,omitempty"`
	IgnoredTags  []string `yaml:"ignored_tags,omitempty"`
	Color        string   `yaml:"color,omitempty"`
}

type GitHubSync struct {
	Username       string          `yaml:"username"`
	PersonalToken  string          `yaml:"personal_token"`
	CommitsConfigs *CommitsConfigs `yaml:"commits_configs,omitempty"`
	IssuesConfigs  *IssuesConfigs  `yaml:"issues_configs,omitempty"`
}

type CommitsConfigs struct {
	CommitsCalendar   string `yaml:"commits_calendar"`
	IgnoreForks       bool   `yaml:"ignore_forks"`
	ParseCommitEmojis bool   `yaml:"parse_commit_emojis"`
}

type IssuesConfigs struct {
	IssuesCalendar string `yaml:"issues_calendar"`
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, configFile), nil
}

// Load reads and validates the config at path. An empty path falls back to
// the default location under ~/.config.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes and validates raw YAML config bytes.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ValidationError{Problems: []string{err.Error()}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks presence and shape of every section. Any problem rejects
// the whole config.
func (c *Config) Validate() error {
	var problems []string

	if c.Settings.SyncFunction == "" {
		problems = append(problems, "settings.sync_function is required")
	}
	if c.Settings.TimezoneCorrection < -12 || c.Settings.TimezoneCorrection > 14 {
		problems = append(problems, "settings.timezone_correction must be a whole-hour UTC offset")
	}
	if c.Settings.UpdateFrequency <= 0 {
		problems = append(problems, "settings.update_frequency must be a positive number of minutes")
	}

	if c.TickTickSync == nil && c.GitHubSync == nil {
		problems = append(problems, "at least one of ticktick_sync or github_sync must be configured")
	}

	if c.TickTickSync != nil {
		if len(c.TickTickSync.ICSCalendars) == 0 {
			problems = append(problems, "ticktick_sync.ics_calendars must not be empty")
		}
		for i, cal := range c.TickTickSync.ICSCalendars {
			prefix := fmt.Sprintf("ticktick_sync.ics_calendars[%d]", i)
			if cal.Link == "" {
				problems = append(problems, prefix+".link is required")
			}
			if cal.Calendar == "" {
				problems = append(problems, prefix+".gcal is required")
			}
			if cal.DoneCalendar == "" {
				problems = append(problems, prefix+".gcal_done is required")
			}
			if cal.Tag != "" && !strings.HasPrefix(cal.Tag, "#") {
				problems = append(problems, prefix+".tag must be a #-prefixed marker")
			}
			for _, tag := range cal.IgnoredTags {
				if !strings.HasPrefix(tag, "#") {
					problems = append(problems, prefix+".ignored_tags entries must be #-prefixed markers")
					break
				}
			}
		}
	}

	if c.GitHubSync != nil {
		if c.GitHubSync.Username == "" {
			problems = append(problems, "github_sync.username is required")
		}
		if c.GitHubSync.CommitsConfigs == nil && c.GitHubSync.IssuesConfigs == nil {
			problems = append(problems, "github_sync requires commits_configs or issues_configs")
		}
		if c.GitHubSync.CommitsConfigs != nil && c.GitHubSync.CommitsConfigs.CommitsCalendar == "" {
			problems = append(problems, "github_sync.commits_configs.commits_calendar is required")
		}
		if c.GitHubSync.IssuesConfigs != nil && c.GitHubSync.IssuesConfigs.IssuesCalendar == "" {
			problems = append(problems, "github_sync.issues_configs.issues_calendar is required")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Mappings converts the configured ICS calendars into engine mappings,
// preserving declaration order.
func (c *Config) Mappings() []model.Mapping {
	if c.TickTickSync == nil {
		return nil
	}
	mappings := make([]model.Mapping, 0, len(c.TickTickSync.ICSCalendars))
	for _, cal := range c.TickTickSync.ICSCalendars {
		mappings = append(mappings, model.Mapping{
			Link:         cal.Link,
			Calendar:     cal.Calendar,
			DoneCalendar: cal.DoneCalendar,
			Tag:          cal.Tag,
			IgnoredTags:  append([]string(nil), cal.IgnoredTags...),
			Color:        cal.Color,
		})
	}
	return mappings
}
