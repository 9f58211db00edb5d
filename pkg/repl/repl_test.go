package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func echoCommand(payload string, cfg *REPLConfig) (string, error) {
	return strings.TrimPrefix(payload, "echo "), nil
}

func TestReplDispatchesRegisteredCommand(t *testing.T) {
	r := NewRepl()
	r.AddCommand("echo", echoCommand, "echo back the payload")

	var out bytes.Buffer
	in := strings.NewReader("echo hello\n")
	r.Run(uuid.New(), "> ", in, &out)

	if !strings.Contains(out.String(), "hello\n") {
		t.Fatalf("output = %q, want it to contain %q", out.String(), "hello")
	}
}

func TestReplUnknownCommandReportsError(t *testing.T) {
	r := NewRepl()
	var out bytes.Buffer
	in := strings.NewReader("bogus\n")
	r.Run(uuid.New(), "> ", in, &out)

	if !strings.Contains(out.String(), ErrorPrependStr) {
		t.Fatalf("output = %q, want it to contain %q", out.String(), ErrorPrependStr)
	}
}

func TestReplHelpMetacommand(t *testing.T) {
	r := NewRepl()
	r.AddCommand("echo", echoCommand, "echo back the payload")
	var out bytes.Buffer
	in := strings.NewReader(TriggerHelpMetacommand + "\n")
	r.Run(uuid.New(), "> ", in, &out)

	if !strings.Contains(out.String(), "echo back the payload") {
		t.Fatalf("output = %q, want it to contain the registered help string", out.String())
	}
}

func TestCombineReplsMergesCommands(t *testing.T) {
	a := NewRepl()
	a.AddCommand("a", echoCommand, "a help")
	b := NewRepl()
	b.AddCommand("b", echoCommand, "b help")

	merged, err := CombineRepls([]*REPL{a, b})
	if err != nil {
		t.Fatalf("CombineRepls: %v", err)
	}
	if len(merged.GetCommands()) != 2 {
		t.Fatalf("merged has %d commands, want 2", len(merged.GetCommands()))
	}
}

func TestCombineReplsRejectsOverlap(t *testing.T) {
	a := NewRepl()
	a.AddCommand("echo", echoCommand, "a help")
	b := NewRepl()
	b.AddCommand("echo", echoCommand, "b help")

	if _, err := CombineRepls([]*REPL{a, b}); err != ErrOverlappingCommands {
		t.Fatalf("CombineRepls error = %v, want ErrOverlappingCommands", err)
	}
}

func TestAddCommandIgnoresHelpTrigger(t *testing.T) {
	r := NewRepl()
	r.AddCommand(TriggerHelpMetacommand, echoCommand, "should be ignored")
	if _, ok := r.GetCommands()[TriggerHelpMetacommand]; ok {
		t.Fatal("AddCommand should not register the reserved help trigger")
	}
}
