// Package orchestrator reacts to external triggers (explicit delete
// request, browser startup, last-window close) and decides whether to run a
// cleaning pass.
//
// Trigger handlers are independent: they share only the settings store and
// the session guard, and no handler re-enters another. Background triggers
// (startup, window close) treat every error as non-fatal; only the explicit
// request has a caller awaiting a result.
package orchestrator

import (
	"context"
	"crypto/subtle"

	"github.com/taka-sakai/dehistory/internal/domain"
	"github.com/taka-sakai/dehistory/internal/ports"
	"github.com/taka-sakai/dehistory/internal/settings"
	"github.com/taka-sakai/dehistory/internal/status"
	"github.com/taka-sakai/dehistory/pkg/log"
)

// Runner executes a full cleaning run. *cleaner.Cleaner satisfies it.
type Runner interface {
	ClearAll(ctx context.Context) error
}

// Orchestrator wires the triggers to the cleaner.
type Orchestrator struct {
	settings *settings.Store
	cleaner  Runner
	session  ports.SessionStore
	windows  ports.WindowEnumerator
	recorder status.Repository
	logger   log.Logger

	// trustedSender authenticates explicit delete requests; only the
	// extension's own control surface knows it.
	trustedSender string
}

// New creates an Orchestrator. trustedSender is the credential an explicit
// delete request must present.
func New(st *settings.Store, cleaner Runner, session ports.SessionStore, windows ports.WindowEnumerator, trustedSender string, logger log.Logger) *Orchestrator {
	return &Orchestrator{
		settings:      st,
		cleaner:       cleaner,
		session:       session,
		windows:       windows,
		logger:        logger,
		trustedSender: trustedSender,
	}
}

// WithStatus records every cleaning run's outcome to repo.
func (o *Orchestrator) WithStatus(repo status.Repository) *Orchestrator {
	o.recorder = repo
	return o
}

// record persists the outcome of a run. Recording failures are logged and
// never affect the run's result.
func (o *Orchestrator) record(ctx context.Context, trigger string, runErr error) {
	if o.recorder == nil {
		return
	}
	st, err := o.recorder.Load(ctx)
	if err != nil {
		o.logger.Warn("status load failed", log.Err(err))
		st = status.Status{}
	}
	if runErr != nil {
		st.RecordFailure(trigger, runErr)
	} else {
		st.RecordSuccess(trigger)
	}
	if err := o.recorder.Save(ctx, st); err != nil {
		o.logger.Warn("status save failed", log.Err(err))
	}
}

// HandleDeleteRequest serves the explicit deleteData trigger. An
// unrecognized sender is rejected with domain.ErrUnauthorized before any
// deletion is attempted; for a trusted sender the result of the cleaning
// run is returned to the caller.
func (o *Orchestrator) HandleDeleteRequest(ctx context.Context, sender string) error {
	if subtle.ConstantTimeCompare([]byte(sender), []byte(o.trustedSender)) != 1 {
		o.logger.Warn("delete request from unauthorized sender rejected")
		return domain.ErrUnauthorized
	}
	err := o.cleaner.ClearAll(ctx)
	o.record(ctx, status.TriggerRequest, err)
	return err
}

// HandleStartup serves the browser-startup trigger. The session guard makes
// it idempotent within one browser session: a background restart that fires
// a second startup is a no-op. The guard is set only after a successful
// run, and left unset when runOnStartup is off. Errors are logged and
// swallowed; they never reach the host event loop.
func (o *Orchestrator) HandleStartup(ctx context.Context) {
	executed, err := o.session.GetBool(ctx, domain.SessionKeyStartupCleanExecuted)
	if err != nil {
		o.logger.Error("startup trigger: session guard read failed", log.Err(err))
		return
	}
	if executed {
		o.logger.Debug("startup trigger: already cleaned this session")
		return
	}
	if !o.settings.Settings().RunOnStartup {
		o.logger.Debug("startup trigger: runOnStartup disabled")
		return
	}

	runErr := o.cleaner.ClearAll(ctx)
	o.record(ctx, status.TriggerStartup, runErr)
	if runErr != nil {
		// Guard stays unset so the next startup in this session retries.
		o.logger.Error("startup cleaning failed", log.Err(runErr))
		return
	}
	if err := o.session.SetBool(ctx, domain.SessionKeyStartupCleanExecuted, true); err != nil {
		// A crash between run and flag-set costs one redundant run on the
		// next startup, which the removal surface tolerates.
		o.logger.Error("startup trigger: session guard write failed", log.Err(err))
	}
}

// HandleWindowClosed serves the window-removal trigger. Settings are
// reloaded first so edits made since the last load are honored. The window
// count is queried after the close event, when the host has already dropped
// the closed window from its answer: zero remaining normal windows means
// the last window closed. Errors are logged and swallowed.
//
// A failed window query skips cleaning instead of assuming "last window";
// deleting data on the strength of a failed query is the wrong default.
func (o *Orchestrator) HandleWindowClosed(ctx context.Context) {
	if err := o.settings.Load(ctx); err != nil {
		o.logger.Error("window-close trigger: settings reload failed", log.Err(err))
		return
	}
	if !o.settings.Settings().RunOnClose {
		return
	}

	remaining, err := o.windows.CountNormalWindows(ctx)
	if err != nil {
		o.logger.Error("window-close trigger: window query failed, skipping clean", log.Err(err))
		return
	}
	if remaining > 0 {
		o.logger.Debug("window-close trigger: windows still open", log.Int("remaining", remaining))
		return
	}

	o.logger.Info("last browser window closed, cleaning")
	runErr := o.cleaner.ClearAll(ctx)
	o.record(ctx, status.TriggerClose, runErr)
	if runErr != nil {
		o.logger.Error("window-close cleaning failed", log.Err(runErr))
	}
}
