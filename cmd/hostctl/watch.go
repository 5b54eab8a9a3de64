package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/stickyhost/errors"
	"github.com/wippyai/stickyhost/host"
	"github.com/wippyai/stickyhost/resource"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#666666"))
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Interactively create, call and release hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New(errors.PhaseConfig, errors.KindNotSupported).
					Detail("watch needs an interactive terminal").
					Build()
			}
			m := newWatchModel(rootOpts.table, rootOpts.hostOptions())
			defer m.close()
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			m.releaseAll()
			return err
		},
	}
}

type keyMap struct {
	New     key.Binding
	Invoke  key.Binding
	AddRef  key.Binding
	Release key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Invoke, k.AddRef, k.Release, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	New:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new host")),
	Invoke:  key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("enter", "invoke")),
	AddRef:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "add ref")),
	Release: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "release")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type watchedHost struct {
	ref    *host.Ref
	calls  int
	uptime time.Duration
	// pinned is the number of references this session still owns.
	pinned int
}

type watchModel struct {
	opts   []host.Option
	events chan resource.Event
	cancel func()
	hosts  []*watchedHost
	table  table.Model
	help   help.Model
	status string
	err    error
}

type tickMsg time.Time

type exportMsg resource.Event

type createdMsg struct {
	ref *host.Ref
	err error
}

type invokedMsg struct {
	ref    *host.Ref
	calls  int
	uptime time.Duration
	err    error
}

func newWatchModel(registry *resource.UnifiedTable, opts []host.Option) *watchModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Host", Width: 36},
			{Title: "Refs", Width: 5},
			{Title: "Loop", Width: 8},
			{Title: "Calls", Width: 6},
			{Title: "Uptime", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	m := &watchModel{
		opts:   opts,
		events: make(chan resource.Event, 64),
		cancel: func() {},
		table:  t,
		help:   help.New(),
	}
	if registry != nil {
		m.cancel = registry.Subscribe(resource.ObserverFunc(m.observe))
	}
	return m
}

// observe forwards export registry events to the program. It runs on the
// goroutine that changed the table and must not block; when the buffer is
// full the next tick catches up.
func (m *watchModel) observe(e resource.Event) {
	if e.TypeID != resource.TypeExport {
		return
	}
	select {
	case m.events <- e:
	default:
	}
}

func (m *watchModel) close() {
	m.cancel()
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.waitForExport())
}

func (m *watchModel) waitForExport() tea.Cmd {
	return func() tea.Msg {
		return exportMsg(<-m.events)
	}
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.releaseAll()
			return m, tea.Quit
		case key.Matches(msg, keys.New):
			return m, m.create
		case key.Matches(msg, keys.Invoke):
			if h := m.selected(); h != nil {
				return m, invoke(h.ref)
			}
		case key.Matches(msg, keys.AddRef):
			m.addRef()
		case key.Matches(msg, keys.Release):
			m.release()
		}

	case tickMsg:
		m.prune()
		m.refresh()
		return m, tick()

	case exportMsg:
		if msg.Type == resource.EventDropped {
			m.forget(msg.Handle)
		}
		m.refresh()
		return m, m.waitForExport()

	case createdMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.hosts = append(m.hosts, &watchedHost{ref: msg.ref, pinned: 1})
		m.setStatus("created %s", msg.ref.ID())

	case invokedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		for _, h := range m.hosts {
			if h.ref == msg.ref {
				h.calls = msg.calls
				h.uptime = msg.uptime
			}
		}
		m.setStatus("invoked %s", msg.ref.ID())
	}

	m.refresh()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *watchModel) create() tea.Msg {
	ref, err := host.Create(newCounter, m.opts...)
	return createdMsg{ref: ref, err: err}
}

func invoke(ref *host.Ref) tea.Cmd {
	return func() tea.Msg {
		msg := invokedMsg{ref: ref}
		msg.err = ref.Invoke(context.Background(), func(_ context.Context, obj any) error {
			c := obj.(*counter)
			msg.calls = c.Inc()
			msg.uptime = c.Uptime()
			return nil
		})
		return msg
	}
}

func (m *watchModel) selected() *watchedHost {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.hosts) {
		return nil
	}
	return m.hosts[i]
}

func (m *watchModel) addRef() {
	h := m.selected()
	if h == nil {
		return
	}
	n, err := h.ref.AddRef()
	if err != nil {
		m.err = err
		return
	}
	h.pinned++
	m.setStatus("%s refs %d", h.ref.ID(), n)
}

func (m *watchModel) release() {
	h := m.selected()
	if h == nil || h.pinned == 0 {
		return
	}
	n, err := h.ref.Release()
	if err != nil {
		m.err = err
		return
	}
	h.pinned--
	m.setStatus("%s refs %d", h.ref.ID(), n)
}

// releaseAll drops every reference the session owns.
func (m *watchModel) releaseAll() {
	for _, h := range m.hosts {
		for ; h.pinned > 0; h.pinned-- {
			_, _ = h.ref.Release()
		}
	}
}

// prune forgets hosts whose worker has exited.
func (m *watchModel) prune() {
	live := m.hosts[:0]
	for _, h := range m.hosts {
		select {
		case <-h.ref.Done():
			continue
		default:
			live = append(live, h)
		}
	}
	m.hosts = live
}

// forget drops the host whose export token was removed from the registry.
func (m *watchModel) forget(token resource.Handle) {
	for i, h := range m.hosts {
		if h.ref.Token() == token {
			m.hosts = append(m.hosts[:i], m.hosts[i+1:]...)
			m.setStatus("%s stopped", h.ref.ID())
			return
		}
	}
}

func (m *watchModel) refresh() {
	rows := make([]table.Row, len(m.hosts))
	for i, h := range m.hosts {
		rows[i] = table.Row{
			h.ref.ID(),
			strconv.FormatInt(h.ref.Refs(), 10),
			h.ref.State().String(),
			strconv.Itoa(h.calls),
			h.uptime.Truncate(time.Millisecond).String(),
		}
	}
	m.table.SetRows(rows)
}

func (m *watchModel) setStatus(format string, args ...any) {
	m.status = fmt.Sprintf(format, args...)
	m.err = nil
}

func (m *watchModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hostctl watch"))
	fmt.Fprintf(&b, " %d hosts\n\n", len(m.hosts))
	b.WriteString(tableStyle.Render(m.table.View()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}
