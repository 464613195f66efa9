// Package console implements the line-oriented chat loop.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "console")

const (
	// Prompt is printed before each read
	Prompt = "You: "
	// Farewell is printed when the loop ends
	Farewell = "Goodbye!"
)

// Turner processes one user line, conversation.Manager implements it.
type Turner interface {
	Turn(ctx context.Context, text string) (string, error)
}

// Loop reads the user lines and prints the replies, one turn at a time.
type Loop struct {
	turner Turner
	in     io.Reader
	out    io.Writer
}

// New returns the loop over the reader and writer.
func New(turner Turner, in io.Reader, out io.Writer) *Loop {
	return &Loop{
		turner: turner,
		in:     in,
		out:    out,
	}
}

type line struct {
	text string
	err  error
}

// Run processes the lines until exit, end of input or the context is done.
// It returns an error only if writing to the output fails.
func (l *Loop) Run(ctx context.Context) error {
	lines := make(chan line)
	done := make(chan struct{})
	defer close(done)

	// the read is blocking, so it runs aside to honor the context
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			select {
			case lines <- line{text: scanner.Text()}:
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- line{err: err}:
			case <-done:
			}
		}
	}()

	for {
		if _, err := io.WriteString(l.out, Prompt); err != nil {
			return err
		}

		var ln line
		var ok bool
		select {
		case <-ctx.Done():
			return l.bye("\n")
		case ln, ok = <-lines:
		}

		if !ok {
			return l.bye("\n")
		}
		if ln.err != nil {
			logger.KV(xlog.ERROR, "status", "read_failed", "err", ln.err.Error())
			return l.bye("\n")
		}

		text := strings.TrimSpace(ln.text)
		if text == "" || strings.EqualFold(text, "exit") || strings.EqualFold(text, "quit") {
			return l.bye("")
		}

		reply, err := l.turner.Turn(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return l.bye("\n")
			}
			reply = fmt.Sprintf("[Error: %s]", err.Error())
		}

		if _, err = fmt.Fprintf(l.out, "Agent: %s\n\n", reply); err != nil {
			return err
		}
	}
}

func (l *Loop) bye(prefix string) error {
	_, err := fmt.Fprintln(l.out, prefix+Farewell)
	return err
}
