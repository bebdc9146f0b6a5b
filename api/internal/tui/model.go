// Package tui is a terminal front-end for the controller: type a path,
// pick a style, generate, read the result.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	resultFrame = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type (
	// snapshotMsg carries a controller state change.
	snapshotMsg controller.Snapshot
	// fileMsg is the outcome of reading the typed path.
	fileMsg struct {
		file upload.File
		err  error
	}
	catalogMsg  struct{ err error }
	generateMsg struct{ err error }
)

// Notify adapts a channel to controller.WithOnChange. Snapshots are
// dropped when the channel is full; the model re-reads state anyway.
func Notify(ch chan<- controller.Snapshot) func(controller.Snapshot) {
	return func(s controller.Snapshot) {
		select {
		case ch <- s:
		default:
		}
	}
}

type Model struct {
	ctx     context.Context
	ctl     *controller.Controller
	changes <-chan controller.Snapshot
	keys    keyMap

	input  textinput.Model
	spin   spinner.Model
	result viewport.Model

	snap      controller.Snapshot
	inputSeen uint64
	notice    string
	width     int
}

// New builds the model. changes should be the channel passed to Notify
// for ctl; it may be nil.
func New(ctx context.Context, ctl *controller.Controller, changes <-chan controller.Snapshot) Model {
	ti := textinput.New()
	ti.Placeholder = "path/to/scan.png"
	ti.Prompt = "Image: "
	ti.CharLimit = 4096
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	snap := ctl.Snapshot()
	return Model{
		ctx:       ctx,
		ctl:       ctl,
		changes:   changes,
		keys:      defaultKeys(),
		input:     ti,
		spin:      s,
		result:    viewport.New(80, 15),
		snap:      snap,
		inputSeen: snap.InputVersion,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick, m.loadCatalog(), m.waitForChange())
}

func (m Model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		return catalogMsg{err: m.ctl.LoadStyleCatalog(m.ctx)}
	}
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-m.changes:
			return snapshotMsg(s)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) readFile(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := upload.ReadFile(path)
		return fileMsg{file: f, err: err}
	}
}

func (m Model) generate() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctl.Generate(m.ctx)
		return generateMsg{err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.result.Width = max(msg.Width-4, 20)
		m.result.Height = max(msg.Height-12, 5)
		m.input.Width = max(msg.Width-len(m.input.Prompt)-2, 10)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.ctl.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Select):
			path := strings.TrimSpace(m.input.Value())
			if path == "" {
				m.notice = "Type the path of an image first."
				return m, nil
			}
			m.notice = ""
			return m, m.readFile(path)
		case key.Matches(msg, m.keys.Generate):
			m.notice = ""
			return m, m.generate()
		case key.Matches(msg, m.keys.Reset):
			m.notice = ""
			m.ctl.Reset()
			m.refresh(m.ctl.Snapshot())
			return m, nil
		case key.Matches(msg, m.keys.Style):
			if id := nextStyle(m.snap); id != "" {
				_ = m.ctl.SelectStyle(id)
				m.refresh(m.ctl.Snapshot())
			}
			return m, nil
		}

	case fileMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		_ = m.ctl.SelectFile(msg.file)
		m.refresh(m.ctl.Snapshot())
		return m, nil

	case catalogMsg, generateMsg:
		if g, ok := msg.(generateMsg); ok && errors.Is(g.err, controller.ErrBusy) {
			m.notice = "A generation is already running."
		}
		m.refresh(m.ctl.Snapshot())
		return m, nil

	case snapshotMsg:
		m.refresh(controller.Snapshot(msg))
		return m, m.waitForChange()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.result, cmd = m.result.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// refresh adopts a snapshot. A new InputVersion means the selection was
// reset, so the path input is cleared too.
func (m *Model) refresh(s controller.Snapshot) {
	m.snap = s
	if s.InputVersion != m.inputSeen {
		m.inputSeen = s.InputVersion
		m.input.Reset()
	}
	m.result.SetContent(s.Text())
	m.result.GotoTop()
}

func nextStyle(s controller.Snapshot) string {
	if len(s.Catalog) == 0 {
		return ""
	}
	for i, st := range s.Catalog {
		if st.ID == s.StyleID {
			return s.Catalog[(i+1)%len(s.Catalog)].ID
		}
	}
	return s.Catalog[0].ID
}

func (m Model) View() string {
	var b strings.Builder
	title := "Imaging report generator"
	if m.snap.Variant != backend.VariantReport {
		title = "Image story generator"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")
	b.WriteString(m.input.View() + "\n")

	if m.snap.HasFile() {
		b.WriteString(labelStyle.Render("Selected: ") + m.snap.File.Describe() + "\n")
	} else {
		b.WriteString(labelStyle.Render("Selected: ") + "none\n")
	}
	if m.snap.Variant.UsesStyles() {
		style := m.snap.StyleName()
		switch {
		case !m.snap.CatalogLoaded:
			style = m.spin.View() + " loading styles"
		case style == "":
			style = "none available"
		}
		b.WriteString(labelStyle.Render("Style:    ") + style + "\n")
	}
	b.WriteString("\n")

	switch st := m.snap.Status.(type) {
	case controller.Loading:
		b.WriteString(fmt.Sprintf("%s Generating…\n", m.spin.View()))
	case controller.Failure:
		b.WriteString(errorStyle.Render("✗ "+st.Err.Message) + "\n")
	case controller.Success:
		b.WriteString(okStyle.Render("✓ Done") + "\n")
		b.WriteString(resultFrame.Render(m.result.View()) + "\n")
	}
	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice) + "\n")
	}

	var help []string
	for _, k := range m.keys.help(m.snap.Variant.UsesStyles()) {
		h := k.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	b.WriteString("\n" + helpStyle.Render(strings.Join(help, " • ")))
	return b.String()
}
