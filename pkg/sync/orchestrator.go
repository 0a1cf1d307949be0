package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/api/calendar/v3"

	"github.com/lucasvtiradentes/gcal-sync/pkg/config"
	"github.com/lucasvtiradentes/gcal-sync/pkg/ics"
	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

// CalendarAPI is the narrow calendar-client contract the engine consumes.
type CalendarAPI interface {
	EnsureCalendar(name string) (string, error)
	ListEvents(calendarID string) ([]*calendar.Event, error)
	InsertEvent(calendarID string, event *calendar.Event) (*calendar.Event, error)
	PatchEvent(calendarID, eventID string, patch *calendar.Event) (*calendar.Event, error)
	MoveEvent(fromCalendarID, eventID, toCalendarID string) (*calendar.Event, error)
	DeleteEvent(calendarID, eventID string) error
}

// ICSFetcher retrieves a raw feed payload.
type ICSFetcher interface {
	Fetch(ctx context.Context, link string) (string, error)
}

// CommitsFetcher retrieves the bounded commit window.
type CommitsFetcher interface {
	FetchCommits(ctx context.Context) ([]model.Commit, error)
}

// SessionReporter dispatches the finished session to the reporting
// collaborators (logs, email).
type SessionReporter interface {
	Report(ctx context.Context, session *Session)
}

// RunState tracks the orchestrator's position in a run.
type RunState string

const (
	StateIdle         RunState = "idle"
	StateFetchSources RunState = "fetch_sources"
	StateDiff         RunState = "diff"
	StateApply        RunState = "apply"
	StateReport       RunState = "report"
	StateFailed       RunState = "failed"
)

// Orchestrator sequences one sync run: fetch everything concurrently, join,
// diff per destination, apply, report. It assumes at most one run active at a
// time; the scheduling collaborator enforces that.
type Orchestrator struct {
	cfg      *config.Config
	cal      CalendarAPI
	feeds    ICSFetcher
	commits  CommitsFetcher
	reporter SessionReporter
	logger   *slog.Logger

	state RunState
}

func NewOrchestrator(cfg *config.Config, cal CalendarAPI, feeds ICSFetcher, commits CommitsFetcher, reporter SessionReporter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		cal:      cal,
		feeds:    feeds,
		commits:  commits,
		reporter: reporter,
		logger:   logger,
		state:    StateIdle,
	}
}

func (o *Orchestrator) State() RunState { return o.state }

type feedResult struct {
	tasks  []model.Task
	failed []*ics.NormalizationError
	err    error
}

// Run executes one sync run and always returns the session; only config
// validation happens earlier and is allowed to abort before a session exists.
// Partial results applied before a failure stay applied; the next run's diff
// reconciles from the calendar snapshot.
func (o *Orchestrator) Run(ctx context.Context) *Session {
	session := NewSession()
	defer func() {
		if r := recover(); r != nil {
			session.Fail(fmt.Errorf("run aborted: %v", r))
		}
		session.Finish()
		o.state = StateIdle
		if session.FatalError != nil {
			o.state = StateFailed
		}
	}()

	if o.cfg.Options.MaintenanceMode {
		o.logger.Info("maintenance mode is on, skipping run", "session", session.ID)
		return session
	}

	destinations := ResolveMappings(o.cfg.Mappings())

	// FetchSources: one fetch per feed plus the commits window, concurrently,
	// all joined before any diffing starts.
	o.state = StateFetchSources
	feedResults := map[string]*feedResult{}
	var commitList []model.Commit
	var commitsErr error

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, dest := range destinations {
		for _, source := range dest.Sources {
			mu.Lock()
			_, started := feedResults[source.Key]
			if !started {
				feedResults[source.Key] = &feedResult{}
			}
			mu.Unlock()
			if started {
				continue
			}

			wg.Add(1)
			go func(source Source) {
				defer wg.Done()
				result := o.fetchFeed(ctx, source)
				mu.Lock()
				feedResults[source.Key] = result
				mu.Unlock()
			}(source)
		}
	}

	if o.commits != nil && o.commitsCalendar() != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list, err := o.commits.FetchCommits(ctx)
			mu.Lock()
			commitList, commitsErr = list, err
			mu.Unlock()
		}()
	}

	wg.Wait()

	for key, result := range feedResults {
		if result.err != nil {
			session.RecordError(PhaseFetch, key, result.err)
			continue
		}
		for _, nerr := range result.failed {
			session.RecordError(PhaseNormalize, key, nerr)
		}
	}
	if commitsErr != nil {
		session.RecordError(PhaseFetch, "github", commitsErr)
	}

	// Diff and Apply: destinations are independent and run concurrently;
	// mutations within one destination stay serialized so the run observes
	// its own prior writes.
	o.state = StateDiff
	var applyWG sync.WaitGroup
	for _, dest := range destinations {
		applyWG.Add(1)
		go func(dest Destination) {
			defer applyWG.Done()
			o.syncDestination(ctx, dest, feedResults, session)
		}(dest)
	}

	if o.commits != nil && o.commitsCalendar() != "" && commitsErr == nil {
		applyWG.Add(1)
		go func() {
			defer applyWG.Done()
			o.syncCommits(commitList, session)
		}()
	}

	o.state = StateApply
	applyWG.Wait()

	o.state = StateReport
	if o.reporter != nil {
		o.reporter.Report(ctx, session)
	}
	return session
}

func (o *Orchestrator) fetchFeed(ctx context.Context, source Source) *feedResult {
	raw, err := o.feeds.Fetch(ctx, source.Link)
	if err != nil {
		return &feedResult{err: err}
	}
	tasks, failed, err := ics.Parse(raw, source.Link, source.Key, o.cfg.Settings.TimezoneCorrection)
	if err != nil {
		return &feedResult{err: err}
	}
	return &feedResult{tasks: tasks, failed: failed}
}

// syncDestination diffs and applies one destination calendar. If any source
// feeding it failed to fetch, the whole destination is skipped this run:
// completing tasks that merely failed to fetch would destroy history.
func (o *Orchestrator) syncDestination(ctx context.Context, dest Destination, feedResults map[string]*feedResult, session *Session) {
	tasksBySource := map[string][]model.Task{}
	for _, source := range dest.Sources {
		result := feedResults[source.Key]
		if result == nil || result.err != nil {
			o.logger.Warn("skipping destination, source fetch failed",
				"calendar", dest.Calendar, "source", source.Key)
			session.RecordError(PhaseDiff, dest.Calendar,
				fmt.Errorf("skipped: source %s failed to fetch", source.Key))
			return
		}
		tasksBySource[source.Key] = result.tasks
	}

	activeID, err := o.cal.EnsureCalendar(dest.Calendar)
	if err != nil {
		session.RecordError(PhaseApply, dest.Calendar, err)
		return
	}
	snapshot, err := o.cal.ListEvents(activeID)
	if err != nil {
		session.RecordError(PhaseApply, dest.Calendar, err)
		return
	}

	actions := DiffTasks(dest, tasksBySource, snapshot)
	o.logger.Info("destination diff computed",
		"calendar", dest.Calendar,
		"add", len(actions.ToAdd), "update", len(actions.ToUpdate), "complete", len(actions.ToComplete))

	for _, add := range actions.ToAdd {
		if _, err := o.cal.InsertEvent(activeID, add.Event); err != nil {
			session.RecordError(PhaseApply, dest.Calendar, err)
			continue
		}
		session.RecordTaskAdded()
	}

	for _, update := range actions.ToUpdate {
		if _, err := o.cal.PatchEvent(activeID, update.EventID, update.Patch); err != nil {
			session.RecordError(PhaseApply, dest.Calendar, err)
			continue
		}
		session.RecordTaskUpdated(update.TaskID, update.Fields)
	}

	for _, completion := range actions.ToComplete {
		doneID, err := o.cal.EnsureCalendar(completion.DoneCalendar)
		if err != nil {
			session.RecordError(PhaseApply, dest.Calendar, err)
			continue
		}
		if _, err := o.cal.MoveEvent(activeID, completion.EventID, doneID); err != nil {
			session.RecordError(PhaseApply, dest.Calendar, err)
			continue
		}
		session.RecordTaskCompleted()
	}
}

func (o *Orchestrator) syncCommits(commits []model.Commit, session *Session) {
	calendarName := o.commitsCalendar()
	opts := o.commitOptions()

	calendarID, err := o.cal.EnsureCalendar(calendarName)
	if err != nil {
		session.RecordError(PhaseApply, calendarName, err)
		return
	}
	snapshot, err := o.cal.ListEvents(calendarID)
	if err != nil {
		session.RecordError(PhaseApply, calendarName, err)
		return
	}

	actions := DiffCommits(commits, snapshot, opts)
	o.logger.Info("commits diff computed",
		"calendar", calendarName, "add", len(actions.ToAdd), "delete", len(actions.ToDelete))

	for _, commit := range actions.ToAdd {
		if _, err := o.cal.InsertEvent(calendarID, CommitToEvent(&commit, opts)); err != nil {
			session.RecordError(PhaseApply, calendarName, err)
			continue
		}
		session.RecordCommitAdded()
	}

	for _, deletion := range actions.ToDelete {
		if err := o.cal.DeleteEvent(calendarID, deletion.EventID); err != nil {
			session.RecordError(PhaseApply, calendarName, err)
			continue
		}
		session.RecordCommitDeleted()
	}
}

func (o *Orchestrator) commitsCalendar() string {
	if o.cfg.GitHubSync == nil || o.cfg.GitHubSync.CommitsConfigs == nil {
		return ""
	}
	return o.cfg.GitHubSync.CommitsConfigs.CommitsCalendar
}

func (o *Orchestrator) commitOptions() CommitOptions {
	cc := o.cfg.GitHubSync.CommitsConfigs
	return CommitOptions{
		IgnoreForks:       cc.IgnoreForks,
		ParseCommitEmojis: cc.ParseCommitEmojis,
	}
}
