package model

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/modoterra/redtail/pkg/config"
	"github.com/modoterra/redtail/pkg/core"
	"github.com/modoterra/redtail/pkg/session"
	"github.com/modoterra/redtail/pkg/view"
)

// Mode identifies the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// SnapshotFunc fetches the current log snapshot, one entry per line.
type SnapshotFunc func(ctx context.Context) ([]string, error)

// Options wires an App to its collaborators.
type Options struct {
	Config *config.Config
	// Session is the viewing session, already seeded.
	Session *session.Session
	// Feed delivers live events. Nil in poll mode.
	Feed <-chan core.Event
	// Snapshot is re-read on every poll tick. Optional.
	Snapshot  SnapshotFunc
	Clipboard session.Clipboard
}

// App is the root Bubble Tea model.
type App struct {
	sess      *session.Session
	cfg       *config.Config
	feed      <-chan core.Event
	snapshot  SnapshotFunc
	clipboard session.Clipboard

	// UI
	mode     Mode
	search   textinput.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int

	feedClosed bool
	statusMsg  string
}

// New creates a new TUI app model.
func New(opts Options) App {
	si := textinput.New()
	si.Placeholder = "filter..."
	si.Prompt = "/ "
	si.CharLimit = 128

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	sess := opts.Session
	if sess == nil {
		sess = session.New(cfg.SessionConfig(), time.Now())
	}

	return App{
		sess:      sess,
		cfg:       cfg,
		feed:      opts.Feed,
		snapshot:  opts.Snapshot,
		clipboard: opts.Clipboard,
		search:    si,
		mode:      ModeNormal,
	}
}

// Session returns the underlying session.
func (a App) Session() *session.Session { return a.sess }

// Init starts the feed listener and the periodic timer.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.SetWindowTitle("redtail"), a.tickCmd()}
	if a.feed != nil {
		cmds = append(cmds, listenCmd(a.feed))
	}
	return tea.Batch(cmds...)
}

// feedMsg carries one event from the live feed.
type feedMsg core.Event

// feedClosedMsg reports that the feed channel was closed.
type feedClosedMsg struct{}

// tickMsg drives liveness checks, or re-renders in poll mode.
type tickMsg time.Time

// expireMsg clears the transient banner identified by seq.
type expireMsg struct{ seq uint64 }

// copyDoneMsg clears the copy confirmation identified by seq.
type copyDoneMsg struct{ seq uint64 }

// snapshotMsg carries a re-read snapshot.
type snapshotMsg struct {
	lines []string
	err   error
}

func listenCmd(feed <-chan core.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-feed
		if !ok {
			return feedClosedMsg{}
		}
		return feedMsg(ev)
	}
}

func (a App) tickCmd() tea.Cmd {
	every := a.cfg.CheckInterval.Std()
	if !a.sess.Live() {
		every = a.cfg.PollInterval.Std()
	}
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func snapshotCmd(fetch SnapshotFunc, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		lines, err := fetch(ctx)
		return snapshotMsg{lines: lines, err: err}
	}
}

// Update handles messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case feedMsg:
		cmd := a.apply(a.sess.Handle(core.Event(msg)))
		return a, tea.Batch(cmd, listenCmd(a.feed))

	case feedClosedMsg:
		a.feedClosed = true
		a.statusMsg = "feed closed"
		return a, nil

	case tickMsg:
		if !a.sess.Live() && a.snapshot != nil {
			return a, tea.Batch(a.tickCmd(), snapshotCmd(a.snapshot, a.cfg.PollInterval.Std()))
		}
		cmd := a.apply(a.sess.Handle(core.Event{Kind: core.EventTick, At: time.Time(msg)}))
		return a, tea.Batch(cmd, a.tickCmd())

	case snapshotMsg:
		if msg.err != nil {
			a.statusMsg = "snapshot: " + msg.err.Error()
			return a, a.apply(a.sess.Handle(core.Event{Kind: core.EventTick, At: time.Now()}))
		}
		a.statusMsg = ""
		return a, a.apply(a.sess.Reload(msg.lines))

	case expireMsg:
		return a, a.apply(a.sess.Handle(core.Event{Kind: core.EventStatusExpired, At: time.Now(), Seq: msg.seq}))

	case copyDoneMsg:
		a.sess.ClearCopied(msg.seq)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

// apply pushes a session result into the viewport and schedules any
// requested banner expiry.
func (a *App) apply(res session.Result) tea.Cmd {
	if res.Rerendered {
		a.refreshContent()
		if res.ScrollToBottom {
			a.viewport.GotoBottom()
		}
	}
	if res.ExpireAfter > 0 {
		seq := res.ExpireSeq
		return tea.Tick(res.ExpireAfter, func(time.Time) tea.Msg {
			return expireMsg{seq: seq}
		})
	}
	return nil
}

func (a *App) refreshContent() {
	if !a.ready {
		return
	}
	a.viewport.SetContent(view.Clip(a.sess.Rendered(), a.viewport.Width))
}

func (a *App) resize() {
	h := a.height - chromeRows(a.cfg.UI.Search)
	if h < 1 {
		h = 1
	}
	if !a.ready {
		a.viewport = viewport.New(a.width, h)
		a.ready = true
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = h
	}
	a.search.Width = a.width - 4
	a.refreshContent()
	if a.sess.Autoscroll() {
		a.viewport.GotoBottom()
	}
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Search mode
	if a.mode == ModeSearch {
		switch msg.String() {
		case "esc":
			a.mode = ModeNormal
			a.search.SetValue("")
			a.search.Blur()
			return a, a.apply(a.sess.SetQuery(""))
		case "enter":
			a.mode = ModeNormal
			a.search.Blur()
			return a, nil
		case "ctrl+c":
			return a, tea.Quit
		default:
			var cmd tea.Cmd
			a.search, cmd = a.search.Update(msg)
			if a.search.Value() != a.sess.Query() {
				return a, tea.Batch(cmd, a.apply(a.sess.SetQuery(a.search.Value())))
			}
			return a, cmd
		}
	}

	// Normal mode
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "/":
		if a.cfg.UI.Search {
			a.mode = ModeSearch
			a.search.Focus()
			return a, textinput.Blink
		}

	case "esc":
		if a.sess.Query() != "" {
			a.search.SetValue("")
			return a, a.apply(a.sess.SetQuery(""))
		}

	case "a":
		if a.cfg.UI.Autoscroll {
			if a.sess.ToggleAutoscroll() {
				a.viewport.GotoBottom()
			}
		}

	case "c":
		if a.cfg.UI.Copy {
			d, seq, ok := a.sess.Copy(a.clipboard)
			if ok {
				return a, tea.Tick(d, func(time.Time) tea.Msg { return copyDoneMsg{seq: seq} })
			}
		}

	case "g", "home":
		a.viewport.GotoTop()
	case "G", "end":
		a.viewport.GotoBottom()

	default:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	return a, nil
}
