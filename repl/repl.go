// Package repl runs the interactive spreadsheet shell: a line-oriented
// command loop printing the viewport after every command, with a
// prompt carrying the previous command's wall-clock time and status.
// When stdin and stdout are a terminal, input goes through a raw-mode
// line editor with history; otherwise lines are read as-is.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"tally/cellref"
	"tally/engine"
)

// Start drives the command loop until `q` or end of input.
// setupSeconds seeds the first prompt's elapsed field with the time
// grid construction took.
func Start(sheet *engine.Sheet, in io.Reader, out io.Writer, setupSeconds float64) {
	var tty *lineReader
	var scanner *bufio.Scanner
	if lr, ok := newLineReader(in, out); ok {
		tty = lr
		defer tty.Close()
		// Raw mode stops the terminal from translating LF; normalize
		// everything we print so lines start in column 0.
		out = newRawWriter(out)
	} else {
		scanner = bufio.NewScanner(in)
	}

	lastTime := setupSeconds
	lastStatus := engine.StatusOK
	for {
		sheet.Render(out)
		prompt := fmt.Sprintf("[%.1f] (%s) > ", lastTime, lastStatus)

		var line string
		if tty != nil {
			l, ok := tty.readLine(prompt)
			if !ok {
				return
			}
			line = l
		} else {
			fmt.Fprint(out, prompt)
			if !scanner.Scan() {
				return
			}
			line = scanner.Text()
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "q" {
			return
		}

		start := time.Now()
		status, fx := Execute(sheet, line)
		commandTime := time.Since(start).Seconds()

		// The sleep budget covers the command's own runtime.
		sleepTime := float64(fx.SleepSeconds)
		if sleepTime <= commandTime {
			sleepTime = 0
		} else {
			sleepTime -= commandTime
		}
		lastTime = commandTime + sleepTime
		if sleepTime > 0 {
			time.Sleep(time.Duration(sleepTime * float64(time.Second)))
		}
		lastStatus = status
	}
}

// Execute dispatches one shell command against the sheet.
func Execute(sheet *engine.Sheet, cmd string) (engine.Status, engine.Effects) {
	var fx engine.Effects
	switch {
	case cmd == "disable_output":
		sheet.SetOutput(false)
		return engine.StatusOK, fx
	case cmd == "enable_output":
		sheet.SetOutput(true)
		return engine.StatusOK, fx
	case len(cmd) == 1 && strings.ContainsAny(cmd, "wasd"):
		sheet.Scroll(cmd[0])
		return engine.StatusOK, fx
	case strings.HasPrefix(cmd, "scroll_to "):
		ref, err := cellref.Parse(cmd[len("scroll_to "):])
		if err != nil {
			return engine.StatusInvalidCell, fx
		}
		return sheet.ScrollTo(ref), fx
	}

	if eq := strings.IndexByte(cmd, '='); eq >= 0 {
		ref, err := cellref.Parse(cmd[:eq])
		if err != nil {
			return engine.StatusInvalidCell, fx
		}
		return sheet.SetCellRef(ref, cmd[eq+1:])
	}
	return engine.StatusUnrecognized, fx
}
