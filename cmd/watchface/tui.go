package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BYTE-6D65/watchface/pkg/event"
	"github.com/BYTE-6D65/watchface/pkg/power"
	"github.com/BYTE-6D65/watchface/pkg/termcanvas"
)

const (
	panelWidth   = 38
	recentEvents = 6
)

// demoZones are cycled by the z key.
var demoZones = []string{
	"UTC",
	"America/New_York",
	"Europe/London",
	"Asia/Kolkata",
	"Asia/Tokyo",
	"Australia/Sydney",
}

// Message types
type messageType int

const (
	msgInfo messageType = iota
	msgWarning
)

// userMessage represents a dynamic message to the user
type userMessage struct {
	msgType messageType
	text    string
}

// model is the terminal host. The engine runs inside Update.
type model struct {
	ctx    context.Context
	loop   *teaLoop
	host   *host
	canvas *termcanvas.Canvas

	width  int
	height int
	dirty  bool
	lowBit bool
	zone   int

	startErr    error
	userMessage *userMessage
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		PaddingLeft(2)

	helpStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		PaddingTop(1).
		PaddingLeft(2)

	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7D56F4")).
		Padding(0, 1).
		Width(panelWidth)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262"))

	offStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		Align(lipgloss.Center, lipgloss.Center)

	infoMessageStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#00A9E0")).
		Foreground(lipgloss.Color("#00A9E0")).
		Padding(0, 2).
		MarginLeft(2)

	warningMessageStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#FFB800")).
		Foreground(lipgloss.Color("#FFB800")).
		Padding(0, 2).
		MarginLeft(2)
)

func (m *model) Init() tea.Cmd {
	if err := m.host.start(m.ctx); err != nil {
		m.startErr = err
		return tea.Quit
	}
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case fireMsg:
		m.loop.fire(msg.handle)

	case postMsg:
		msg.fn()

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.FocusMsg:
		if m.host.power.Current() == power.Off {
			m.host.trigger(m.ctx, power.Show)
		}

	case tea.BlurMsg:
		if m.host.power.Current() != power.Off {
			m.host.trigger(m.ctx, power.Hide)
		}

	case tea.KeyMsg:
		cmd = m.handleKeyPress(msg)
	}

	m.flush()
	return m, cmd
}

func (m *model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	m.userMessage = nil

	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit

	case "v":
		m.host.toggleVisible(m.ctx)

	case "a":
		if m.host.power.Current() == power.Off {
			m.userMessage = &userMessage{msgType: msgWarning, text: "display is off, press v first"}
			break
		}
		m.host.toggleAmbient(m.ctx)

	case "l":
		m.lowBit = !m.lowBit
		m.host.engine.OnPropertiesDiscovered(m.lowBit)
		m.dirty = true

	case "z":
		m.zone = (m.zone + 1) % len(demoZones)
		zone := demoZones[m.zone]
		if err := m.host.setZone(m.ctx, zone); err != nil {
			m.userMessage = &userMessage{msgType: msgWarning, text: err.Error()}
			break
		}
		m.userMessage = &userMessage{msgType: msgInfo, text: "published " + event.TypeTimezoneChanged + " zone=" + zone}
	}
	return nil
}

// resize rebuilds the canvas as the largest square face that fits beside
// the status panel.
func (m *model) resize(width, height int) {
	m.width, m.height = width, height

	cols := width - panelWidth - 6
	rows := height - 5
	side := min(cols, rows*2)
	if side < 8 {
		m.canvas = nil
		return
	}

	m.canvas = termcanvas.New(side, side/2)
	m.dirty = true
}

// flush answers an outstanding redraw request.
func (m *model) flush() {
	if !m.dirty || m.canvas == nil {
		return
	}
	m.dirty = false
	m.host.engine.OnDraw(m.canvas, m.canvas.Square())
}

func (m *model) View() string {
	if m.startErr != nil {
		return warningMessageStyle.Render("failed to start: "+m.startErr.Error()) + "\n"
	}

	s := titleStyle.Render("⌚ Watchface") + "\n\n"
	s += lipgloss.JoinHorizontal(lipgloss.Top, m.renderFace(), "  ", m.renderPanel())
	s += "\n" + helpStyle.Render("v visibility • a ambient • l low-bit • z timezone • q quit")

	if m.userMessage != nil {
		s += "\n" + m.renderUserMessage()
	}
	return s
}

func (m *model) renderFace() string {
	if m.canvas == nil {
		return offStyle.Render("  terminal too small")
	}
	if m.host.power.Current() == power.Off {
		b := m.canvas.Bounds()
		return offStyle.Width(b.Dx()).Height(b.Dy() / 2).Render("display off")
	}
	return m.canvas.View()
}

func (m *model) renderPanel() string {
	e := m.host.engine
	sample := e.LastSample()

	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-9s", label)) + value + "\n"
	}

	var b strings.Builder
	b.WriteString(row("State", string(m.host.power.Current())))
	b.WriteString(row("Mode", e.Mode().String()))
	b.WriteString(row("Visible", yesNo(e.Visible())))
	b.WriteString(row("Ticking", yesNo(e.TickPending())))
	b.WriteString(row("Low-bit", yesNo(e.LowBitAmbient())))
	b.WriteString(row("Zone", e.Zone()))
	b.WriteString(row("Time", fmt.Sprintf("%02d:%02d:%02d  %s", sample.Hour, sample.Minute, sample.Second, sample.DateText())))
	b.WriteString(row("Ticks", fmt.Sprintf("%d", e.Ticks())))
	b.WriteString(row("Frames", fmt.Sprintf("%d", e.Frames())))
	b.WriteString(row("Session", shortID(e.Session())))

	b.WriteString("\n" + labelStyle.Render("Recent events") + "\n")
	for _, evt := range m.host.history.Last(recentEvents) {
		b.WriteString(fmt.Sprintf("%s %s\n", evt.Timestamp.Format("15:04:05"), describe(evt)))
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m *model) renderUserMessage() string {
	if m.userMessage == nil {
		return ""
	}

	var style lipgloss.Style
	var icon string

	switch m.userMessage.msgType {
	case msgInfo:
		style = infoMessageStyle
		icon = "ℹ️ "
	case msgWarning:
		style = warningMessageStyle
		icon = "⚠️  "
	}

	return style.Render(icon + m.userMessage.text)
}

// describe renders an event's type suffix and payload on one line.
func describe(evt event.Event) string {
	name := evt.Type
	if i := strings.LastIndex(name, "."); i > 0 {
		if j := strings.LastIndex(name[:i], "."); j >= 0 {
			name = name[j+1:]
		}
	}

	switch evt.Type {
	case event.TypeTimezoneChanged:
		var p event.TimezoneChanged
		if evt.Decode(&p, event.JSONCodec{}) == nil {
			return name + " " + p.Zone
		}
	case event.TypeVisibilityChanged:
		var p event.VisibilityChanged
		if evt.Decode(&p, event.JSONCodec{}) == nil {
			return name + " " + yesNo(p.Visible)
		}
	case event.TypeModeChanged:
		var p event.ModeChanged
		if evt.Decode(&p, event.JSONCodec{}) == nil {
			return name + " " + p.Mode
		}
	}
	return name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runTUI(args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file (default $WATCHFACE_CONFIG)")
	metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	logPath := fs.String("log", "", "append logs to this file")
	noAmbient := fs.Bool("no-ambient", false, "host has no ambient mode; idle turns the display off")
	fs.Parse(args)

	// The terminal belongs to the renderer
	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "watchface")
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	// a terminal face is a few dozen pixels across
	cfg.ScaleStyle = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg, metrics := newMetrics()
	serveMetrics(ctx, *metricsAddr, reg, log.Default())

	tl := newTeaLoop()
	m := &model{ctx: ctx, loop: tl, lowBit: cfg.LowBitAmbient}

	h, err := newHost(hostOptions{
		cfg:        cfg,
		sched:      tl,
		poster:     tl,
		invalidate: func() { m.dirty = true },
		metrics:    metrics,
		logger:     log.Default(),
		ambient:    !*noAmbient,
		watchZone:  true,
	})
	if err != nil {
		return err
	}
	m.host = h

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	tl.send = p.Send

	_, err = p.Run()
	tl.stop()
	h.stop()

	if err != nil {
		return err
	}
	return m.startErr
}
