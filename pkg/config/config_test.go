package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
settings:
  sync_function: sync
  timezone_correction: -3
  update_frequency: 5
options:
  show_logs: true
  daily_summary_email: true
ticktick_sync:
  ics_calendars:
    - link: webcal://example.com/feed-a.ics
      gcal: gcal_ticktick
      gcal_done: gcal_done
      tag: "#FUN"
      color: sage
    - link: webcal://example.com/feed-b.ics
      gcal: gcal_ticktick
      gcal_done: gcal_done
      ignored_tags: ["#FUN"]
github_sync:
  username: someone
  personal_token: ghp_xxx
  commits_configs:
    commits_calendar: gcal_commits
    ignore_forks: true
`

func TestParse_ValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, -3, cfg.Settings.TimezoneCorrection)
	assert.True(t, cfg.Options.ShowLogs)
	require.NotNil(t, cfg.TickTickSync)
	require.Len(t, cfg.TickTickSync.ICSCalendars, 2)
	assert.Equal(t, "#FUN", cfg.TickTickSync.ICSCalendars[0].Tag)
	assert.Equal(t, []string{"#FUN"}, cfg.TickTickSync.ICSCalendars[1].IgnoredTags)
	require.NotNil(t, cfg.GitHubSync)
	assert.True(t, cfg.GitHubSync.CommitsConfigs.IgnoreForks)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("settings:\n  sync_function: sync\n  timezone_correction: 0\n  update_frequency: 5\n  bogus_key: 1\nticktick_sync:\n  ics_calendars:\n    - link: x\n      gcal: y\n      gcal_done: z\n"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{
			name:    "missing sync function",
			mutate:  func(c *Config) { c.Settings.SyncFunction = "" },
			problem: "sync_function",
		},
		{
			name:    "zero update frequency",
			mutate:  func(c *Config) { c.Settings.UpdateFrequency = 0 },
			problem: "update_frequency",
		},
		{
			name:    "no sync section at all",
			mutate:  func(c *Config) { c.TickTickSync = nil; c.GitHubSync = nil },
			problem: "at least one",
		},
		{
			name:    "mapping without link",
			mutate:  func(c *Config) { c.TickTickSync.ICSCalendars[0].Link = "" },
			problem: "link is required",
		},
		{
			name:    "mapping without done calendar",
			mutate:  func(c *Config) { c.TickTickSync.ICSCalendars[0].DoneCalendar = "" },
			problem: "gcal_done",
		},
		{
			name:    "tag without marker prefix",
			mutate:  func(c *Config) { c.TickTickSync.ICSCalendars[0].Tag = "FUN" },
			problem: "#-prefixed",
		},
		{
			name:    "github without username",
			mutate:  func(c *Config) { c.GitHubSync.Username = "" },
			problem: "username",
		},
		{
			name:    "out of range timezone correction",
			mutate:  func(c *Config) { c.Settings.TimezoneCorrection = 30 },
			problem: "timezone_correction",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYAML))
			require.NoError(t, err)

			tc.mutate(cfg)
			err = cfg.Validate()

			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "expected a validation error")
			assert.Contains(t, verr.Error(), tc.problem)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	cfg.Settings.SyncFunction = ""
	cfg.Settings.UpdateFrequency = 0

	verr := new(ValidationError)
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Len(t, verr.Problems, 2, "validation reports every problem, not just the first")
}

func TestMappings_PreservesDeclarationOrder(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	mappings := cfg.Mappings()
	require.Len(t, mappings, 2)
	assert.Equal(t, "webcal://example.com/feed-a.ics", mappings[0].Link)
	assert.Equal(t, "gcal_ticktick", mappings[0].Calendar)
	assert.Equal(t, "sage", mappings[0].Color)
}

func TestMappings_NilWithoutTickTickSection(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.Mappings())
}
