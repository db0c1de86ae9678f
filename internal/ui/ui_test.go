package ui

import (
	"bytes"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/smartlock/internal/lockstate"
)

func TestClampWidth(t *testing.T) {
	assert.Equal(t, MinTerminalWidth, clampWidth(0, errors.New("not a tty")))
	assert.Equal(t, MinTerminalWidth, clampWidth(20, nil))
	assert.Equal(t, 80, clampWidth(80, nil))
	assert.Equal(t, MaxContentWidth, clampWidth(300, nil))
}

func TestHeaderRender(t *testing.T) {
	out := NewHeader("unlock", "smartlock-cli unlock", map[string]string{
		"Controller": "https://192.168.1.50",
		"Auth":       "pinned",
	}).SetWidth(80).Render()

	assert.Contains(t, out, "UNLOCK")
	assert.Contains(t, out, "smartlock-cli unlock")
	assert.Contains(t, out, "https://192.168.1.50")
	assert.Less(t, bytes.Index([]byte(out), []byte("Auth:")), bytes.Index([]byte(out), []byte("Controller:")))
}

func TestResultRender(t *testing.T) {
	out := NewFailureResult("Unlock failed", errors.New("wrong password"), []string{"Check the password"}).
		SetWidth(80).Render()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "wrong password")
	assert.Contains(t, out, "Check the password")

	out = NewStateResult("Controller unlocked", "https://192.168.1.50", lockstate.Unlocked).SetWidth(80).Render()
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "UNLOCKED")

	out = NewWarningResult("No controllers found", nil).AddDetail("Timeout", "3s").SetWidth(80).Render()
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "3s")
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintSuccess("Done", map[string]string{"State": "locked"})
	assert.Contains(t, buf.String(), "Done")
}

func TestSpinnerModel(t *testing.T) {
	m := NewSpinnerModel("Browsing", func() error { return nil })
	require.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "Browsing")

	wantErr := errors.New("browse failed")
	next, cmd := m.Update(taskDoneMsg{err: wantErr})
	require.NotNil(t, cmd)
	final := next.(SpinnerModel)
	assert.ErrorIs(t, final.Err(), wantErr)
	assert.Empty(t, final.View())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.ErrorIs(t, next.(SpinnerModel).Err(), ErrInterrupted)
}

func TestRunWithSpinnerWithoutTerminal(t *testing.T) {
	if IsTerminal() {
		t.Skip("stdout is a terminal")
	}
	called := false
	err := RunWithSpinner(&bytes.Buffer{}, "Working", func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
