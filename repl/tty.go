package repl

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const historyLimit = 500

// lineReader reads sheet commands from a raw-mode terminal. Commands
// are one short line (`B2=A1+1`, `scroll_to C5`, `w`), so editing is
// deliberately minimal: backspace, Ctrl+C/D, and up/down recall of
// earlier commands. Each keystroke is echoed in place; only history
// recall repaints the line.
type lineReader struct {
	in      *os.File
	out     io.Writer
	state   *term.State
	buf     *bufio.Reader
	history []string
}

// newLineReader switches the input into raw mode when both ends are a
// terminal; otherwise it reports false and the caller falls back to a
// plain scanner.
func newLineReader(in io.Reader, out io.Writer) (*lineReader, bool) {
	inFile, ok := in.(*os.File)
	if !ok {
		return nil, false
	}
	outFile, ok := out.(*os.File)
	if !ok {
		return nil, false
	}
	if !term.IsTerminal(int(inFile.Fd())) || !term.IsTerminal(int(outFile.Fd())) {
		return nil, false
	}

	state, err := term.MakeRaw(int(inFile.Fd()))
	if err != nil {
		return nil, false
	}
	return &lineReader{
		in:    inFile,
		out:   out,
		state: state,
		buf:   bufio.NewReader(inFile),
	}, true
}

func (r *lineReader) Close() {
	if r == nil || r.state == nil {
		return
	}
	_ = term.Restore(int(r.in.Fd()), r.state)
}

func (r *lineReader) readLine(prompt string) (string, bool) {
	fmt.Fprint(r.out, prompt)

	var line []byte
	histIndex := len(r.history)
	for {
		b, err := r.buf.ReadByte()
		if err != nil {
			return "", false
		}
		switch b {
		case '\r', '\n':
			fmt.Fprint(r.out, "\r\n")
			entered := string(line)
			r.history = pushHistory(r.history, entered)
			return entered, true
		case 0x03: // Ctrl+C
			fmt.Fprint(r.out, "^C\r\n")
			return "", false
		case 0x04: // Ctrl+D
			if len(line) == 0 {
				fmt.Fprint(r.out, "\r\n")
				return "", false
			}
		case 0x7f, 0x08: // Backspace
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprint(r.out, "\b \b")
			}
		case 0x1b: // ESC: only the up/down history sequences matter
			seq := make([]byte, 2)
			if _, err := io.ReadFull(r.buf, seq); err != nil {
				return "", false
			}
			if seq[0] != '[' {
				continue
			}
			switch seq[1] {
			case 'A':
				if histIndex > 0 {
					histIndex--
					line = r.repaint(prompt, r.history[histIndex])
				}
			case 'B':
				if histIndex < len(r.history)-1 {
					histIndex++
					line = r.repaint(prompt, r.history[histIndex])
				} else if histIndex == len(r.history)-1 {
					histIndex++
					line = r.repaint(prompt, "")
				}
			}
		default:
			if b >= 0x20 {
				line = append(line, b)
				fmt.Fprintf(r.out, "%c", b)
			}
		}
	}
}

// repaint rewrites the whole input line after a history recall.
func (r *lineReader) repaint(prompt, text string) []byte {
	fmt.Fprintf(r.out, "\r\x1b[K%s%s", prompt, text)
	return []byte(text)
}

// pushHistory appends a command, skipping blanks and immediate
// repeats, and bounds the buffer to historyLimit entries.
func pushHistory(history []string, line string) []string {
	if strings.TrimSpace(line) == "" {
		return history
	}
	if n := len(history); n > 0 && history[n-1] == line {
		return history
	}
	history = append(history, line)
	if excess := len(history) - historyLimit; excess > 0 {
		history = history[excess:]
	}
	return history
}

// rawWriter rewrites LF as CRLF for a terminal in raw mode, tracking
// the previous byte across writes so an already-paired "\r\n" passes
// through untouched.
type rawWriter struct {
	out  io.Writer
	last byte
}

func newRawWriter(out io.Writer) io.Writer {
	return &rawWriter{out: out}
}

func (w *rawWriter) Write(p []byte) (int, error) {
	rest := p
	for len(rest) > 0 {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		chunk := rest[:i]
		if _, err := w.out.Write(chunk); err != nil {
			return len(p) - len(rest), err
		}
		crlf := "\r\n"
		if w.lastBefore(chunk) == '\r' {
			crlf = "\n"
		}
		if _, err := io.WriteString(w.out, crlf); err != nil {
			return len(p) - len(rest), err
		}
		w.last = '\n'
		rest = rest[i+1:]
	}
	if len(rest) > 0 {
		if _, err := w.out.Write(rest); err != nil {
			return len(p) - len(rest), err
		}
		w.last = rest[len(rest)-1]
	}
	return len(p), nil
}

// lastBefore is the byte immediately preceding the current newline:
// the chunk's tail, or the carry-over from the previous Write.
func (w *rawWriter) lastBefore(chunk []byte) byte {
	if len(chunk) > 0 {
		return chunk[len(chunk)-1]
	}
	return w.last
}
