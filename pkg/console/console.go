// Package console is the line-oriented command surface of the server and
// client: "name argument" lines dispatched to registered commands, plus a
// bounded history of output lines.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// HistorySize is how many output lines a console keeps.
const HistorySize = 64

var ErrUnknownCommand = errors.New("unknown command")

// Command handles the text after the command name. It may be empty.
type Command func(arg string) error

type Console struct {
	name     string
	commands map[string]Command
	history  []string

	// Out, when set, receives every output line.
	Out io.Writer
}

func New(name string) *Console {
	return &Console{name: name, commands: make(map[string]Command)}
}

func (c *Console) Name() string { return c.name }

// Register binds name to fn, replacing an earlier binding.
func (c *Console) Register(name string, fn Command) {
	c.commands[name] = fn
}

// Commands lists the registered names in order.
func (c *Console) Commands() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs one input line. The name ends at the first space; everything
// after it is the argument. Errors are also written to the history.
func (c *Console) Execute(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	name, arg, _ := strings.Cut(line, " ")

	fn, ok := c.commands[name]
	if !ok {
		err := fmt.Errorf("%w %q", ErrUnknownCommand, name)
		log.Warn().Str("console", c.name).Str("command", name).Msg("invalid command")
		c.Printf("[WARNING] invalid command '%s'", name)
		return err
	}
	if err := fn(arg); err != nil {
		log.Error().Err(err).Str("console", c.name).Str("command", name).Msg("command failed")
		c.Printf("[ERROR] %s: %v", name, err)
		return err
	}
	return nil
}

// Printf appends one line to the history.
func (c *Console) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if len(c.history) == HistorySize {
		copy(c.history, c.history[1:])
		c.history = c.history[:HistorySize-1]
	}
	c.history = append(c.history, line)
	if c.Out != nil {
		fmt.Fprintln(c.Out, line)
	}
}

// History returns the retained output lines, oldest first.
func (c *Console) History() []string {
	return append([]string(nil), c.history...)
}

// Lines reads r line by line on its own goroutine. The channel is closed at
// EOF or when ctx ends.
func Lines(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			log.Warn().Err(err).Msg("console input closed")
		}
	}()
	return out
}
