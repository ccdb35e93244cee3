package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldvoice/fieldvoice/pkg/audio/capture"
	"github.com/fieldvoice/fieldvoice/pkg/cli"
	"github.com/fieldvoice/fieldvoice/pkg/controller"
	"github.com/fieldvoice/fieldvoice/pkg/draft"
	"github.com/fieldvoice/fieldvoice/pkg/kv"
	"github.com/fieldvoice/fieldvoice/pkg/realtime"
	"github.com/fieldvoice/fieldvoice/pkg/token"
)

const peerSampleRate = 24000

var recordFlags struct {
	idleTimeout time.Duration
	idlePolicy  string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Start an interactive voice capture session",
	Long: `Capture speech against the current context's realtime peer.

Plain speech accumulates into a draft entry shown in the Draft pane.
Spoken commands ("new job Smith Kitchen", "mark it done", "save it")
act on the diary instead of the draft.

Keyboard commands while recording:
  save      submit the draft now
  discard   throw the draft away
  quit      stop the session and exit (the draft is checkpointed)`,
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, err := currentContext()
	if err != nil {
		return err
	}
	if ctx.TokenURL == "" || ctx.RealtimeURL == "" || ctx.DiaryURL == "" {
		return fmt.Errorf("context %q needs token_url, realtime_url and diary_url", ctx.Name)
	}

	paths, err := cli.NewPaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDataDir(); err != nil {
		return err
	}

	store, err := kv.NewBadger(kv.BadgerOptions{Dir: paths.DataPath("drafts")})
	if err != nil {
		return fmt.Errorf("opening draft store: %w", err)
	}
	defer store.Close()

	// Route logs into the UI's log pane instead of the terminal.
	logs := cli.NewLogWriter(200)
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: level})))

	sampleRate := ctx.SampleRate
	if sampleRate <= 0 {
		sampleRate = peerSampleRate
	}
	opener := resampledMicrophone(sampleRate)

	var transport realtime.Transport
	switch ctx.Transport {
	case "", "webrtc":
		transport = realtime.NewWebRTCTransport(ctx.RealtimeURL, opener)
	case "websocket":
		transport = realtime.NewWebSocketTransport(ctx.RealtimeURL, opener)
	default:
		return fmt.Errorf("unknown transport %q (want webrtc or websocket)", ctx.Transport)
	}

	session := realtime.NewSession(transport, realtime.WithIdleTimeout(recordFlags.idleTimeout))
	broker := token.NewHTTPBroker(ctx.TokenURL, ctx.TokenAPIKey)
	diaryStore, _, err := diaryClient()
	if err != nil {
		return err
	}
	buffer := draft.NewBuffer(store, ctx.UserID)

	idlePolicy, err := parseIdlePolicy(recordFlags.idlePolicy)
	if err != nil {
		return err
	}

	ui := newRecordUI(logs, session)
	ctrl := controller.New(broker, session, diaryStore, buffer, ui,
		controller.WithIdlePolicy(idlePolicy))
	ui.ctrl = ctrl

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := ctrl.Start(runCtx); err != nil {
		return err
	}
	defer ctrl.Stop(context.Background())

	ui.redraw()
	return inputLoop(runCtx, ctrl, ui)
}

// resampledMicrophone opens the default microphone and converts it to the
// peer's expected rate when the hardware rate differs.
func resampledMicrophone(rate int) capture.Opener {
	open := capture.Microphone(rate, 100*time.Millisecond)
	return func() (capture.Source, error) {
		src, err := open()
		if err != nil {
			return nil, err
		}
		return capture.Resample(src, peerSampleRate)
	}
}

func parseIdlePolicy(name string) (controller.IdlePolicy, error) {
	switch name {
	case "", "notify":
		return controller.IdleNotify, nil
	case "checkpoint":
		return controller.IdleCheckpoint, nil
	case "stop":
		return controller.IdleStop, nil
	}
	return 0, fmt.Errorf("unknown idle policy %q (want notify, checkpoint or stop)", name)
}

// inputLoop reads keyboard commands until quit or cancellation.
func inputLoop(ctx context.Context, ctrl *controller.Controller, ui *recordUI) error {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.ToLower(line) {
			case "quit", "q", "exit":
				return nil
			case "save", "s":
				// Errors already surfaced through the UI.
				_ = ctrl.Submit(ctx, nil)
			case "discard":
				ui.discard(ctx)
			case "":
			default:
				ui.toast(fmt.Sprintf("Unknown command %q (save, discard, quit)", line))
			}
		}
	}
}

// recordUI is the terminal rendering of the capture session: a framed
// dashboard with draft, conversation and log panes, redrawn on change.
type recordUI struct {
	styles  cli.Styles
	logs    *cli.LogWriter
	session *realtime.Session
	ctrl    *controller.Controller

	mu     sync.Mutex
	drafts []string
	toasts []string
}

func newRecordUI(logs *cli.LogWriter, session *realtime.Session) *recordUI {
	ui := &recordUI{
		styles:  cli.NewStyles(cli.DefaultTheme),
		logs:    logs,
		session: session,
	}
	go func() {
		for range logs.Channel() {
			ui.redraw()
		}
	}()
	return ui
}

func (u *recordUI) OnTranscriptUpdate(text string) {
	u.mu.Lock()
	if text == "" {
		u.drafts = nil
	} else {
		u.drafts = strings.Split(text, "\n")
	}
	u.mu.Unlock()
	u.redraw()
}

func (u *recordUI) OnConversationAppend(role draft.Role, text string) {
	u.redraw()
}

func (u *recordUI) OnToast(message string) {
	u.toast(message)
}

func (u *recordUI) OnError(err error) {
	u.toast("Error: " + err.Error())
}

func (u *recordUI) toast(message string) {
	u.mu.Lock()
	u.toasts = append(u.toasts, message)
	if len(u.toasts) > 5 {
		u.toasts = u.toasts[len(u.toasts)-5:]
	}
	u.mu.Unlock()
	u.redraw()
}

func (u *recordUI) discard(ctx context.Context) {
	if u.ctrl == nil {
		return
	}
	if err := u.ctrl.DiscardDraft(ctx); err == nil {
		u.toast("Draft discarded")
	}
}

func (u *recordUI) redraw() {
	u.mu.Lock()
	drafts := append([]string(nil), u.drafts...)
	toasts := append([]string(nil), u.toasts...)
	u.mu.Unlock()

	var convo []string
	if u.ctrl != nil {
		for _, m := range u.ctrl.Conversation() {
			convo = append(convo, fmt.Sprintf("%s: %s", m.Role, m.Text))
		}
	}

	status := u.session.State().String()
	if u.ctrl != nil {
		if job := u.ctrl.ActiveJob(); job != nil {
			status += " · " + job.Name
		}
	}

	frame := cli.Frame{
		Styles: u.styles,
		Title:  "fieldvoice",
		Status: status,
		Sections: []cli.Section{
			{Label: "Draft", Content: func() []string { return drafts }},
			{Label: "Conversation", Content: func() []string { return convo }},
			{Label: "Notices", Content: func() []string { return toasts }},
			{Label: "Log", Content: u.logs.Lines},
		},
		Help: "type: save · discard · quit",
	}

	// Clear and repaint; a fixed canvas keeps the renderer simple.
	fmt.Print("\033[2J\033[H")
	fmt.Println(frame.Render(100, 32))
}

func init() {
	recordCmd.Flags().DurationVar(&recordFlags.idleTimeout, "idle-timeout", realtime.DefaultIdleTimeout, "idle window after the peer's last response")
	recordCmd.Flags().StringVar(&recordFlags.idlePolicy, "idle-policy", "notify", "idle policy: notify, checkpoint, stop")
	rootCmd.AddCommand(recordCmd)
}
