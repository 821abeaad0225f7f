// Package tui is a terminal front end for the grid editor. The terminal
// cells of the canvas area stand in for the on-screen image box, so mouse
// events run through the same pointer pipeline as the browser editor.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"gridcrop/internal/crop"
	"gridcrop/internal/export"
	"gridcrop/internal/geometry"
	"gridcrop/internal/logging"
	"gridcrop/internal/session"
)

const headerHeight = 1

// savedMsg reports the outcome of an export command.
type savedMsg struct {
	path string
	n    int
	err  error
}

type Model struct {
	sess   *session.Session
	source string
	outDir string
	now    func() time.Time

	width  int
	height int

	keys   keyMap
	help   help.Model
	status string
	busy   bool
}

// New builds a model editing sess, whose image was loaded from source.
// Exports are written next to the source file.
func New(sess *session.Session, source string) Model {
	return Model{
		sess:   sess,
		source: source,
		outDir: filepath.Dir(source),
		now:    time.Now,
		keys:   defaultKeys(),
		help:   help.New(),
		status: fmt.Sprintf("editing %s", filepath.Base(source)),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
	case savedMsg:
		m.busy = false
		if msg.err != nil {
			logging.WithError(msg.err, "export")
			m.status = "export failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("wrote %d cells to %s", msg.n, msg.path)
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.sess.Grid().Dimensions()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.MoreCols):
		m.resize(d.Cols+1, d.Rows)
	case key.Matches(msg, m.keys.FewerCols):
		m.resize(d.Cols-1, d.Rows)
	case key.Matches(msg, m.keys.MoreRows):
		m.resize(d.Cols, d.Rows+1)
	case key.Matches(msg, m.keys.FewerRows):
		m.resize(d.Cols, d.Rows-1)
	case key.Matches(msg, m.keys.Reset):
		m.sess.Reset()
		m.status = "grid reset"
	case key.Matches(msg, m.keys.Crop):
		return m.export(writeZip, export.ArchiveName)
	case key.Matches(msg, m.keys.PDF):
		cols := d.Cols
		title := filepath.Base(m.source)
		return m.export(func(path string, rs []crop.Result) error {
			return writePDF(path, rs, cols, title)
		}, export.ContactSheetName)
	}
	return m, nil
}

func (m *Model) resize(cols, rows int) {
	if m.sess.Resize(cols, rows) {
		d := m.sess.Grid().Dimensions()
		m.status = fmt.Sprintf("grid %d×%d", d.Cols, d.Rows)
	}
}

// export crops synchronously and writes the file from a command.
func (m Model) export(write func(string, []crop.Result) error, name func(time.Time) string) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	results, err := m.sess.Crop()
	if err != nil {
		m.status = "crop failed: " + err.Error()
		return m, nil
	}
	if len(results) == 0 {
		m.status = "nothing to export"
		return m, nil
	}
	if n := len(m.sess.Skipped()); n > 0 {
		logging.Warn("%d cells skipped", n)
	}
	m.busy = true
	m.status = "exporting..."
	path := filepath.Join(m.outDir, name(m.now()))
	return m, func() tea.Msg {
		err := write(path, results)
		return savedMsg{path: path, n: len(results), err: err}
	}
}

func writeZip(path string, results []crop.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.WriteZip(f, results)
}

func writePDF(path string, results []crop.Result, cols int, title string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return export.WriteContactSheet(f, results, cols, title)
}

// canvasBox is the terminal area the image occupies, in cells.
func (m Model) canvasBox() geometry.Box {
	w := max(m.width, 1)
	h := max(m.height-headerHeight-m.footerHeight(), 1)
	return geometry.Box{Left: 0, Top: headerHeight, Width: float64(w), Height: float64(h)}
}

// footerHeight covers the status line and the help view.
func (m Model) footerHeight() int {
	return 1 + strings.Count(m.help.View(m.keys), "\n") + 1
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	box := m.canvasBox()
	// sample at the centre of the terminal cell
	p := session.Pointer{
		Client: geometry.Point{X: float64(msg.X) + 0.5, Y: float64(msg.Y) + 0.5},
		Box:    box,
	}
	inside := p.Client.X >= box.Left && p.Client.X < box.Left+box.Width &&
		p.Client.Y >= box.Top && p.Client.Y < box.Top+box.Height

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft && inside {
			m.sess.PointerDown(p)
		}
	case tea.MouseActionMotion:
		if !inside && !m.sess.DragState().Active {
			return
		}
		m.sess.PointerMove(p)
	case tea.MouseActionRelease:
		m.sess.PointerUp()
	}
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteByte('\n')
	b.WriteString(m.canvas())
	b.WriteByte('\n')
	b.WriteString(statusStyle.Width(m.width).Render(m.status))
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
