// Package repl implements a small, generic command dispatcher: callers
// register triggers mapped to handler functions, then hand the REPL an
// input/output stream to drive an interactive session.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

type ReplCommand func(string, *REPLConfig) (output string, err error)

const (
	// TriggerHelpMetacommand prints every registered command's help string.
	TriggerHelpMetacommand = ".help"

	// ErrorPrependStr is prepended to any command error before it reaches output.
	ErrorPrependStr = "ERROR: "
)

var (
	ErrOverlappingCommands = errors.New("repl: overlapping command triggers")
	ErrCommandNotFound     = errors.New("repl: command not found")
)

// REPL dispatches user input to registered command handlers.
type REPL struct {
	commands map[string]ReplCommand
	help     map[string]string
}

// REPLConfig carries per-session state through to command handlers.
type REPLConfig struct {
	clientID uuid.UUID
}

// ClientID returns the session's client id.
func (c *REPLConfig) ClientID() uuid.UUID {
	return c.clientID
}

// NewRepl constructs an empty REPL.
func NewRepl() *REPL {
	return &REPL{
		commands: make(map[string]ReplCommand),
		help:     make(map[string]string),
	}
}

func contains(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// CombineRepls merges several REPLs' commands into one. Errors if any two
// REPLs register the same trigger.
func CombineRepls(repls []*REPL) (*REPL, error) {
	merged := NewRepl()
	var seen []string
	for _, r := range repls {
		for trigger, action := range r.commands {
			if contains(seen, trigger) {
				return nil, ErrOverlappingCommands
			}
			merged.AddCommand(trigger, action, r.help[trigger])
			seen = append(seen, trigger)
		}
	}
	return merged, nil
}

func (r *REPL) GetCommands() map[string]ReplCommand {
	return r.commands
}

func (r *REPL) GetHelp() map[string]string {
	return r.help
}

// AddCommand registers a handler under trigger, overwriting any existing
// handler with the same trigger. The reserved help trigger is ignored.
func (r *REPL) AddCommand(trigger string, action ReplCommand, help string) {
	if trigger == TriggerHelpMetacommand {
		return
	}
	r.commands[trigger] = action
	r.help[trigger] = help
}

// HelpString renders every registered command's help string.
func (r *REPL) HelpString() string {
	var sb strings.Builder
	for k, v := range r.help {
		sb.WriteString(fmt.Sprintf("%s: %s\n", k, v))
	}
	return sb.String()
}

// Run prints the welcome banner, then reads lines from input, dispatching
// the first whitespace-separated field of each line as a command trigger
// and passing the whole line to its handler. input/output default to
// os.Stdin/os.Stdout when nil.
func (r *REPL) Run(clientID uuid.UUID, prompt string, input io.Reader, output io.Writer) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	scanner := bufio.NewScanner(input)
	cfg := &REPLConfig{clientID: clientID}
	fmt.Fprintln(output, "Welcome to the dinokv REPL! Type '.help' to see the list of available commands.")
	io.WriteString(output, prompt)

	for scanner.Scan() {
		payload := scanner.Text()
		fields := strings.Fields(payload)
		if len(fields) == 0 {
			io.WriteString(output, prompt)
			continue
		}
		trigger := fields[0]

		if trigger == TriggerHelpMetacommand {
			io.WriteString(output, r.HelpString())
			io.WriteString(output, prompt)
			continue
		}

		if command, exists := r.commands[trigger]; exists {
			result, err := command(payload, cfg)
			if err != nil {
				fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, err)
			} else {
				if len(result) != 0 && !strings.HasSuffix(result, "\n") {
					result += "\n"
				}
				io.WriteString(output, result)
			}
		} else {
			fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, ErrCommandNotFound)
		}
		io.WriteString(output, prompt)
	}
	io.WriteString(output, "\n")
}

// RunChan drives the REPL loop from a channel of payload strings instead of
// an io.Reader, echoing each payload to stdout before dispatching it. Used
// for feeding scripted input to a REPL in tests and stress harnesses.
func (r *REPL) RunChan(c chan string, clientID uuid.UUID, prompt string) {
	writer := os.Stdout
	cfg := &REPLConfig{clientID: clientID}
	io.WriteString(writer, prompt)
	for payload := range c {
		io.WriteString(writer, payload+"\n")
		fields := strings.Fields(payload)
		if len(fields) == 0 {
			io.WriteString(writer, prompt)
			continue
		}
		trigger := fields[0]
		if trigger == TriggerHelpMetacommand {
			io.WriteString(writer, r.HelpString())
			io.WriteString(writer, prompt)
			continue
		}
		if command, exists := r.commands[trigger]; exists {
			result, err := command(payload, cfg)
			if err != nil {
				io.WriteString(writer, fmt.Sprintf("%v\n", err))
			} else {
				io.WriteString(writer, fmt.Sprintln(result))
			}
		} else {
			io.WriteString(writer, ErrCommandNotFound.Error())
		}
		io.WriteString(writer, prompt)
	}
	io.WriteString(writer, "\n")
}
