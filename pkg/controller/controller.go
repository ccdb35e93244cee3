// Package controller glues the capture pipeline together: it brokers a
// credential, drives the transport session, routes finalized utterances
// through command classification into either the diary draft or a
// side-effecting command, and owns submit.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fieldvoice/fieldvoice/pkg/command"
	"github.com/fieldvoice/fieldvoice/pkg/diary"
	"github.com/fieldvoice/fieldvoice/pkg/draft"
	"github.com/fieldvoice/fieldvoice/pkg/extract"
	"github.com/fieldvoice/fieldvoice/pkg/realtime"
	"github.com/fieldvoice/fieldvoice/pkg/token"
)

// UI is the sink for everything the user sees. Implementations must not
// block; calls arrive from the event-routing goroutine.
type UI interface {
	// OnTranscriptUpdate delivers the full draft text after it changed.
	OnTranscriptUpdate(text string)

	// OnConversationAppend delivers one finalized conversation message.
	OnConversationAppend(role draft.Role, text string)

	// OnToast delivers a short informational message.
	OnToast(message string)

	// OnError delivers a failure, exactly once per underlying error.
	OnError(err error)
}

// TransportSession is the slice of realtime.Session the controller
// drives. Satisfied by *realtime.Session.
type TransportSession interface {
	Negotiate(ctx context.Context, cred *token.Credential) error
	Close() error
	Events() <-chan realtime.Event
	State() realtime.State
}

// IdlePolicy selects what happens after the peer's idle window elapses.
type IdlePolicy int

const (
	// IdleNotify surfaces a toast and keeps the session open.
	IdleNotify IdlePolicy = iota

	// IdleCheckpoint checkpoints the draft in addition to notifying.
	IdleCheckpoint

	// IdleStop stops the session after notifying.
	IdleStop
)

// ErrSubmitInFlight is returned when a submit is already running.
var ErrSubmitInFlight = errors.New("controller: submit already in flight")

// ErrNoJobSelected is returned when an operation needs an active job.
var ErrNoJobSelected = errors.New("controller: no job selected")

const commandTimeout = 10 * time.Second

// Controller orchestrates one user's capture session.
type Controller struct {
	broker     token.Broker
	session    TransportSession
	store      *diary.Client
	buffer     *draft.Buffer
	convo      *draft.Log
	ui         UI
	idlePolicy IdlePolicy

	mu         sync.Mutex
	starting   bool
	submitting bool
	activeJob  *diary.Job
	routerDone chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithIdlePolicy overrides the idle-timeout policy.
func WithIdlePolicy(p IdlePolicy) Option {
	return func(c *Controller) { c.idlePolicy = p }
}

// New creates a controller. All collaborators are required.
func New(broker token.Broker, session TransportSession, store *diary.Client, buffer *draft.Buffer, ui UI, opts ...Option) *Controller {
	c := &Controller{
		broker:     broker,
		session:    session,
		store:      store,
		buffer:     buffer,
		convo:      draft.NewLog(),
		ui:         ui,
		idlePolicy: IdleNotify,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Conversation returns the session-scoped conversation log.
func (c *Controller) Conversation() []draft.Message {
	return c.convo.Messages()
}

// ActiveJob returns the currently selected job, or nil.
func (c *Controller) ActiveJob() *diary.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeJob
}

// Start acquires a fresh credential and negotiates a session. A second
// call while a start is in flight or a session is live is a no-op.
// Errors are surfaced through the UI sink before being returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	state := c.session.State()
	if c.starting || state == realtime.StateNegotiating || state == realtime.StateActive {
		c.mu.Unlock()
		slog.Debug("start ignored, session already running", "state", state)
		return nil
	}
	c.starting = true
	if c.routerDone != nil {
		close(c.routerDone)
		c.routerDone = nil
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	// Resume any recent draft before new speech arrives.
	if text, ok, err := c.buffer.Restore(ctx); err != nil {
		slog.Warn("draft restore failed", "err", err)
	} else if ok {
		c.ui.OnTranscriptUpdate(text)
		c.ui.OnToast("Restored unsent draft")
	}

	cred, err := c.broker.Acquire(ctx)
	if err != nil {
		err = fmt.Errorf("acquiring session credential: %w", err)
		c.ui.OnError(err)
		return err
	}

	if err := c.session.Negotiate(ctx, cred); err != nil {
		if errors.Is(err, realtime.ErrSuperseded) {
			return nil
		}
		c.ui.OnError(err)
		return err
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.routerDone = done
	c.mu.Unlock()
	go c.route(done)
	return nil
}

// Stop closes the session and checkpoints the draft. Idempotent.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.routerDone != nil {
		close(c.routerDone)
		c.routerDone = nil
	}
	c.mu.Unlock()

	err := c.session.Close()
	if cpErr := c.buffer.Checkpoint(ctx); cpErr != nil {
		slog.Warn("checkpoint on stop failed", "err", cpErr)
	}
	c.convo.Reset()
	return err
}

// Submit freezes the draft, runs field extraction, and files a diary
// entry under the active job. The draft is cleared only on success; a
// failed submit preserves it for retry. At most one submit runs at a
// time. Errors are surfaced through the UI sink before being returned.
func (c *Controller) Submit(ctx context.Context, extraFields map[string]any) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		c.ui.OnToast("Already saving")
		return ErrSubmitInFlight
	}
	c.submitting = true
	job := c.activeJob
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	text := c.buffer.Text()
	if strings.TrimSpace(text) == "" {
		c.ui.OnToast("Nothing to save")
		return nil
	}
	if job == nil {
		c.ui.OnError(ErrNoJobSelected)
		return ErrNoJobSelected
	}

	fields := extract.Parse(text).Map()
	for k, v := range extraFields {
		fields[k] = v
	}

	if _, err := c.store.CreateEntry(ctx, job.ID, text, fields, ""); err != nil {
		c.ui.OnError(fmt.Errorf("saving entry: %w", err))
		return err
	}

	if err := c.buffer.Clear(ctx); err != nil {
		slog.Warn("clearing submitted draft", "err", err)
	}
	c.ui.OnTranscriptUpdate("")
	c.ui.OnToast(fmt.Sprintf("Entry saved to %s", job.Name))
	return nil
}

// DiscardDraft wipes the draft and its checkpoint without submitting.
func (c *Controller) DiscardDraft(ctx context.Context) error {
	if err := c.buffer.Clear(ctx); err != nil {
		c.ui.OnError(fmt.Errorf("discarding draft: %w", err))
		return err
	}
	c.ui.OnTranscriptUpdate("")
	return nil
}

// route consumes session events until the session fails or done closes.
func (c *Controller) route(done chan struct{}) {
	events := c.session.Events()
	for {
		select {
		case <-done:
			return
		case ev := <-events:
			switch ev.Kind {
			case realtime.EventUtteranceFinal:
				if ev.Role == realtime.RoleAssistant {
					c.convo.FinalizeAssistant(ev.Text)
					c.ui.OnConversationAppend(draft.RoleAssistant, ev.Text)
					continue
				}
				c.handleUserUtterance(ev.Text)
			case realtime.EventUtteranceDelta:
				c.convo.AppendDelta(ev.Text)
			case realtime.EventIdleTimeout:
				c.handleIdle()
			case realtime.EventPeerError:
				c.ui.OnError(&realtime.TransportError{Message: ev.Message})
				if err := c.buffer.Checkpoint(context.Background()); err != nil {
					slog.Warn("checkpoint after transport failure", "err", err)
				}
				return
			}
		}
	}
}

// handleUserUtterance classifies one finalized user utterance and either
// executes it as a command or appends it to the draft. A classified
// command never also lands in the draft.
func (c *Controller) handleUserUtterance(text string) {
	c.convo.Append(draft.RoleUser, text)
	c.ui.OnConversationAppend(draft.RoleUser, text)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if cmd, ok := command.Classify(text); ok {
		c.execute(ctx, cmd)
		return
	}
	if err := c.buffer.Append(ctx, text); err != nil {
		slog.Warn("draft append failed", "err", err)
	}
	c.ui.OnTranscriptUpdate(c.buffer.Text())
}

// execute dispatches one classified command against the diary store.
func (c *Controller) execute(ctx context.Context, cmd command.Command) {
	slog.Debug("executing command", "kind", cmd.Kind, "arg", cmd.Arg)
	switch cmd.Kind {
	case command.KindListJobs:
		jobs, err := c.store.ListJobs(ctx, 20)
		if err != nil {
			c.ui.OnError(fmt.Errorf("listing jobs: %w", err))
			return
		}
		c.ui.OnToast(describeJobs(jobs))

	case command.KindCreateJob:
		job, err := c.store.CreateJob(ctx, cmd.Arg, "", "")
		if err != nil {
			c.ui.OnError(fmt.Errorf("creating job %q: %w", cmd.Arg, err))
			return
		}
		c.setActiveJob(job)
		c.ui.OnToast(fmt.Sprintf("Created and selected %s", job.Name))

	case command.KindSelectJob:
		job, err := c.findJob(ctx, cmd.Arg)
		if err != nil {
			c.ui.OnError(err)
			return
		}
		if job == nil {
			c.ui.OnToast(fmt.Sprintf("No job matching %q", cmd.Arg))
			return
		}
		c.setActiveJob(job)
		c.ui.OnToast(fmt.Sprintf("Switched to %s", job.Name))

	case command.KindSetStatus:
		job := c.ActiveJob()
		if job == nil {
			c.ui.OnToast("Select a job first")
			return
		}
		status := cmd.Arg
		updated, err := c.store.UpdateJob(ctx, job.ID, diary.JobUpdate{Status: &status})
		if err != nil {
			c.ui.OnError(fmt.Errorf("updating job status: %w", err))
			return
		}
		c.setActiveJob(updated)
		c.ui.OnToast(fmt.Sprintf("%s marked %s", updated.Name, status))

	case command.KindSetStage:
		job := c.ActiveJob()
		if job == nil {
			c.ui.OnToast("Select a job first")
			return
		}
		patch := map[string]any{"stage": cmd.Arg}
		if err := c.store.PatchJobState(ctx, job.ID, patch, "voice command"); err != nil {
			c.ui.OnError(fmt.Errorf("updating job stage: %w", err))
			return
		}
		c.ui.OnToast(fmt.Sprintf("Stage set to %s", cmd.Arg))

	case command.KindSearchEntries:
		job := c.ActiveJob()
		if job == nil {
			c.ui.OnToast("Select a job first")
			return
		}
		entries, err := c.store.SearchEntries(ctx, job.ID, cmd.Arg, 10)
		if err != nil {
			c.ui.OnError(fmt.Errorf("searching entries: %w", err))
			return
		}
		c.ui.OnToast(fmt.Sprintf("%d entries match %q", len(entries), cmd.Arg))

	case command.KindShowAllEntries:
		job := c.ActiveJob()
		if job == nil {
			c.ui.OnToast("Select a job first")
			return
		}
		entries, err := c.store.ListEntries(ctx, job.ID, 20)
		if err != nil {
			c.ui.OnError(fmt.Errorf("listing entries: %w", err))
			return
		}
		c.ui.OnToast(fmt.Sprintf("Showing all %d entries", len(entries)))

	case command.KindSaveDebrief:
		c.saveDebrief(ctx, cmd.Arg)

	case command.KindSaveDraft:
		if err := c.Submit(ctx, nil); err != nil && !errors.Is(err, ErrSubmitInFlight) {
			slog.Debug("voice submit failed", "err", err)
		}
	}
}

// saveDebrief files a one-shot debrief record, distinct from the running
// draft. An empty spoken argument falls back to the current draft text
// without consuming it.
func (c *Controller) saveDebrief(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		text = c.buffer.Text()
	}
	if strings.TrimSpace(text) == "" {
		c.ui.OnToast("Nothing to debrief")
		return
	}
	job := c.ActiveJob()
	if job == nil {
		c.ui.OnToast("Select a job first")
		return
	}
	result, err := c.store.Debrief(ctx, job.ID, text)
	if err != nil {
		c.ui.OnError(fmt.Errorf("saving debrief: %w", err))
		return
	}
	c.ui.OnToast(fmt.Sprintf("Debrief saved to %s", result.Job.Name))
}

func (c *Controller) handleIdle() {
	switch c.idlePolicy {
	case IdleNotify:
		c.ui.OnToast("Still there? Session is idle")
	case IdleCheckpoint:
		if err := c.buffer.Checkpoint(context.Background()); err != nil {
			slog.Warn("idle checkpoint failed", "err", err)
		}
		c.ui.OnToast("Idle, draft checkpointed")
	case IdleStop:
		c.ui.OnToast("Idle, stopping session")
		go func() {
			if err := c.Stop(context.Background()); err != nil {
				slog.Warn("idle stop failed", "err", err)
			}
		}()
	}
}

func (c *Controller) setActiveJob(job *diary.Job) {
	c.mu.Lock()
	c.activeJob = job
	c.mu.Unlock()
}

// findJob resolves a spoken query to a job by case-insensitive substring
// match over job names, preferring the most recently updated.
func (c *Controller) findJob(ctx context.Context, query string) (*diary.Job, error) {
	jobs, err := c.store.ListJobs(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	q := strings.ToLower(strings.TrimSpace(query))
	for i := range jobs {
		if strings.Contains(strings.ToLower(jobs[i].Name), q) {
			return &jobs[i], nil
		}
	}
	return nil, nil
}

func describeJobs(jobs []diary.Job) string {
	if len(jobs) == 0 {
		return "No jobs yet"
	}
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	return fmt.Sprintf("%d jobs: %s", len(jobs), strings.Join(names, ", "))
}
