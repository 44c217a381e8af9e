package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/engine"
)

func newSheet(t *testing.T, rows, cols int) *engine.Sheet {
	t.Helper()
	s, err := engine.New(rows, cols)
	require.NoError(t, err)
	return s
}

func TestExecuteAssignment(t *testing.T) {
	s := newSheet(t, 3, 3)
	status, _ := Execute(s, "A1=2")
	assert.Equal(t, engine.StatusOK, status)
	assert.Equal(t, "2", s.Display(0, 0))

	status, _ = Execute(s, "B1=A1+1")
	assert.Equal(t, engine.StatusOK, status)
	assert.Equal(t, "3", s.Display(0, 1))
}

func TestExecuteStatuses(t *testing.T) {
	s := newSheet(t, 2, 2)
	tests := []struct {
		cmd  string
		want engine.Status
	}{
		{"A1=1", engine.StatusOK},
		{"foo", engine.StatusUnrecognized},
		{"ww", engine.StatusUnrecognized},
		{"=5", engine.StatusInvalidCell},
		{"Z99=1", engine.StatusInvalidCell},
		{"A1=A9+1", engine.StatusInvalidCell},
		{"A1=MAX(B1:A1)", engine.StatusInvalidRange},
		{"A1=A1", engine.StatusCircularRef},
		{"A1=1/0", engine.StatusDivByZero},
		{"A2=A1", engine.StatusRangeError},
		{"scroll_to B2", engine.StatusOK},
		{"scroll_to Q9", engine.StatusInvalidCell},
		{"scroll_to ?", engine.StatusInvalidCell},
		{"disable_output", engine.StatusOK},
		{"enable_output", engine.StatusOK},
	}
	for _, tt := range tests {
		status, _ := Execute(s, tt.cmd)
		assert.Equal(t, tt.want, status, tt.cmd)
	}
}

func TestExecuteScroll(t *testing.T) {
	s := newSheet(t, 40, 40)
	for _, cmd := range []string{"s", "s", "d"} {
		status, _ := Execute(s, cmd)
		require.Equal(t, engine.StatusOK, status, cmd)
	}
	row, col := s.Viewport()
	assert.Equal(t, 20, row)
	assert.Equal(t, 10, col)

	Execute(s, "w")
	row, _ = s.Viewport()
	assert.Equal(t, 10, row)
}

func TestStartScriptedSession(t *testing.T) {
	s := newSheet(t, 2, 2)
	in := strings.NewReader("A1=2\nB1=A1+1\nbogus\nq\n")
	var out bytes.Buffer

	Start(s, in, &out, 0)

	got := out.String()
	// Initial render plus one per command before quitting.
	assert.Contains(t, got, "    A       B       \n")
	assert.Contains(t, got, "(ok) > ")
	assert.Contains(t, got, "(unrecognized cmd) > ")
	assert.Contains(t, got, "1   2       3       \n")
	assert.Equal(t, "2", s.Display(0, 0))
	assert.Equal(t, "3", s.Display(0, 1))
}

func TestStartEndOfInput(t *testing.T) {
	s := newSheet(t, 2, 2)
	var out bytes.Buffer
	Start(s, strings.NewReader("A1=7\n"), &out, 0)
	assert.Equal(t, "7", s.Display(0, 0))
}

func TestStartDisableOutput(t *testing.T) {
	s := newSheet(t, 2, 2)
	var out bytes.Buffer
	Start(s, strings.NewReader("disable_output\nA1=4\nq\n"), &out, 0)

	// After the toggle no grid is rendered, but prompts still appear.
	got := out.String()
	idx := strings.Index(got, "disable_output")
	assert.Equal(t, -1, idx) // input is not echoed
	assert.Equal(t, 1, strings.Count(got, "    A       B       \n"))
	assert.Equal(t, "4", s.Display(0, 0))
}
