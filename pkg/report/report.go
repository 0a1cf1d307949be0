package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lucasvtiradentes/gcal-sync/pkg/config"
	"github.com/lucasvtiradentes/gcal-sync/pkg/store"
	"github.com/lucasvtiradentes/gcal-sync/pkg/sync"
)

// Notifier delivers a finished-session summary. Email composition and
// transport live behind this boundary.
type Notifier interface {
	SendSessionSummary(ctx context.Context, subject, body string) error
}

// LogNotifier writes summaries to the structured log instead of email.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) SendSessionSummary(_ context.Context, subject, body string) error {
	n.Logger.Info("session summary", "subject", subject, "body", body)
	return nil
}

// BuildSummary renders a session as plain text.
func BuildSummary(s *sync.Session) string {
	parts := []string{
		fmt.Sprintf("session %s finished in %s", s.ID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)),
		fmt.Sprintf("tasks: %d added, %d updated, %d completed", s.Tasks.Added, s.Tasks.Updated, s.Tasks.Completed),
		fmt.Sprintf("commits: %d added, %d deleted", s.Commits.Added, s.Commits.Deleted),
	}
	for _, u := range s.Updates {
		parts = append(parts, fmt.Sprintf("  updated %s: %s", u.TaskID, strings.Join(u.Fields, ", ")))
	}
	if errs := s.ErrorStrings(); len(errs) > 0 {
		parts = append(parts, "errors:")
		for _, e := range errs {
			parts = append(parts, "  "+e)
		}
	}
	if s.FatalError != nil {
		parts = append(parts, "run failed: "+s.FatalError.Error())
	}
	return strings.Join(parts, "\n")
}

// Reporter assembles session statistics and dispatches them to the logging
// and notification collaborators. It implements sync.SessionReporter.
type Reporter struct {
	opts     config.Options
	props    *store.Store
	notifier Notifier
	logger   *slog.Logger
}

func NewReporter(opts config.Options, props *store.Store, notifier Notifier, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{opts: opts, props: props, notifier: notifier, logger: logger}
}

func (r *Reporter) Report(ctx context.Context, session *sync.Session) {
	r.logger.Info("sync session finished",
		"session", session.ID,
		"tasks_added", session.Tasks.Added,
		"tasks_updated", session.Tasks.Updated,
		"tasks_completed", session.Tasks.Completed,
		"commits_added", session.Commits.Added,
		"commits_deleted", session.Commits.Deleted,
		"errors", len(session.Errors),
	)

	if r.notifier == nil {
		return
	}

	if r.opts.EmailSession && session.HasMutations() {
		if err := r.notifier.SendSessionSummary(ctx, "gcal-sync session", BuildSummary(session)); err != nil {
			r.logger.Warn("could not send session summary", "error", err)
		}
	}

	if r.opts.EmailErrors && len(session.Errors) > 0 {
		body := strings.Join(session.ErrorStrings(), "\n")
		if err := r.notifier.SendSessionSummary(ctx, "gcal-sync errors", body); err != nil {
			r.logger.Warn("could not send error summary", "error", err)
		}
	}

	if r.opts.DailySummaryEmail {
		r.sendDailySummary(ctx, session)
	}
}

// sendDailySummary sends at most one summary per calendar date, gated by the
// properties store.
func (r *Reporter) sendDailySummary(ctx context.Context, session *sync.Session) {
	if r.props == nil {
		return
	}
	today := time.Now().Format("2006-01-02")
	last, _, err := r.props.Get(store.KeyLastDailySummaryDate)
	if err != nil {
		r.logger.Warn("could not read daily summary date", "error", err)
		return
	}
	if last == today {
		return
	}
	if err := r.notifier.SendSessionSummary(ctx, "gcal-sync daily summary", BuildSummary(session)); err != nil {
		r.logger.Warn("could not send daily summary", "error", err)
		return
	}
	if err := r.props.Set(store.KeyLastDailySummaryDate, today); err != nil {
		r.logger.Warn("could not persist daily summary date", "error", err)
	}
}
