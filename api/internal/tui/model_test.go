package tui

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend/backendtest"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
)

func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	img.SetGray(1, 1, color.Gray{Y: 200})
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func newModel(t *testing.T, v backend.Variant) (Model, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(v)
	t.Cleanup(srv.Close)
	ctl := controller.New(backend.New(srv.URL, v, 5*time.Second), controller.WithVariant(v))
	return New(context.Background(), ctl, nil), srv
}

// step feeds msg to the model and, if a command comes back, runs it once
// and feeds its message too.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			next, _ = m.Update(out)
			m = next.(Model)
		}
	}
	return m
}

func TestSelectGenerateReset(t *testing.T) {
	m, srv := newModel(t, backend.VariantReport)
	srv.SetGenerate(func(backendtest.Upload) backendtest.Reply {
		return backendtest.Reply{Body: map[string]string{"report": "Findings: normal."}}
	})

	m.input.SetValue(writePNG(t))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.snap.HasFile())
	assert.Contains(t, m.View(), "scan.png (image/png")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, "Findings: normal.", m.snap.Text())
	assert.Contains(t, m.View(), "Findings: normal.")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	assert.False(t, m.snap.HasFile())
	assert.Empty(t, m.input.Value(), "reset clears the path input")
	assert.NotContains(t, m.View(), "Findings")
}

func TestMissingPathAndFile(t *testing.T) {
	m, _ := newModel(t, backend.VariantReport)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.View(), "Type the path of an image first.")

	m.input.SetValue(filepath.Join(t.TempDir(), "nope.png"))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.snap.HasFile())
	assert.Contains(t, m.notice, "nope.png")
}

func TestGenerateFailureShown(t *testing.T) {
	m, srv := newModel(t, backend.VariantReport)
	srv.SetGenerate(func(backendtest.Upload) backendtest.Reply {
		return backendtest.Reply{Status: 422, Body: map[string]string{"detail": "Invalid file"}}
	})

	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Contains(t, m.View(), "Please select an image first.")

	m.input.SetValue(writePNG(t))
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Contains(t, m.View(), "Invalid file")
}

func TestStylesCycle(t *testing.T) {
	m, srv := newModel(t, backend.VariantStyledStory)
	srv.SetStyles(backendtest.Reply{Body: []backend.Style{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}}})

	assert.Contains(t, m.View(), "loading styles")
	m = step(t, m, m.loadCatalog()())
	assert.Contains(t, m.View(), "Alpha")

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "b", m.snap.StyleID)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "a", m.snap.StyleID)
}

func TestSnapshotChannel(t *testing.T) {
	ch := make(chan controller.Snapshot, 1)
	notify := Notify(ch)
	notify(controller.Snapshot{InputVersion: 1})
	notify(controller.Snapshot{InputVersion: 2}) // dropped, channel full

	srv := backendtest.New(backend.VariantReport)
	defer srv.Close()
	ctl := controller.New(backend.New(srv.URL, backend.VariantReport, time.Second))
	m := New(context.Background(), ctl, ch)

	m.input.SetValue("typed")
	next, cmd := m.Update(m.waitForChange()())
	m = next.(Model)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Equal(t, uint64(1), m.snap.InputVersion)
	assert.Empty(t, m.input.Value())
}

func TestQuitClosesController(t *testing.T) {
	m, _ := newModel(t, backend.VariantReport)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.ErrorIs(t, m.ctl.SelectFile(m.snap.File), controller.ErrClosed)
}
