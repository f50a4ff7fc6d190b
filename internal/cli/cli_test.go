package cli

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"TacticalBoard/internal/state"
	"TacticalBoard/internal/storage"
)

func newTestCLI() (*CLI, *bytes.Buffer) {
	var out bytes.Buffer
	c := NewCLI(storage.NewMemoryStore(), nil)
	c.Out = &out
	return c, &out
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"user add coach secret", []string{"user", "add", "coach", "secret"}},
		{`project show coach "Bermuda rotation"`, []string{"project", "show", "coach", "Bermuda rotation"}},
		{"  help   ", []string{"help"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := ParseArgs(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUserCommands(t *testing.T) {
	c, out := newTestCLI()
	if err := c.ExecuteCommand([]string{"user", "add", "coach", "secret1"}); err != nil {
		t.Fatal(err)
	}
	if err := c.ExecuteCommand([]string{"user", "add", "coach", "secret1"}); !errors.Is(err, storage.ErrUserExists) {
		t.Errorf("Expected duplicate user error, got %v", err)
	}
	if err := c.ExecuteCommand([]string{"user", "add", "igl"}); err == nil {
		t.Error("Expected missing password to fail without a terminal")
	}

	out.Reset()
	if err := c.ExecuteCommand([]string{"user", "list"}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "coach" {
		t.Errorf("Unexpected user list %q", out.String())
	}

	if err := c.ExecuteCommand([]string{"user", "del", "coach"}); err != nil {
		t.Fatal(err)
	}
	if err := c.ExecuteCommand([]string{"user", "del", "coach"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestProjectCommands(t *testing.T) {
	c, out := newTestCLI()
	c.Store.UserAdd("coach", "secret1")

	s := state.NewSession("Kalahari")
	s.SetTool(state.ToolArrow)
	s.PointerDown(state.Pt(0, 0))
	s.PointerMove(state.Pt(50, 50))
	s.PointerUp()
	data, err := state.EncodeProject(s.Project("Kalahari push"))
	if err != nil {
		t.Fatal(err)
	}
	c.Store.ProjectSave("coach", "Kalahari push", data)

	out.Reset()
	if err := c.ExecuteCommand(ParseArgs("projects coach")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Kalahari push") {
		t.Errorf("Expected project in listing, got %q", out.String())
	}

	out.Reset()
	if err := c.ExecuteCommand(ParseArgs(`project show coach "Kalahari push"`)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Map:     Kalahari") || !strings.Contains(out.String(), "arrow=1") {
		t.Errorf("Unexpected summary %q", out.String())
	}

	if err := c.ExecuteCommand(ParseArgs(`project del coach "Kalahari push"`)); err != nil {
		t.Fatal(err)
	}
	if err := c.ExecuteCommand(ParseArgs(`project show coach "Kalahari push"`)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
}

func TestExitAndUnknown(t *testing.T) {
	c, out := newTestCLI()
	if err := c.ExecuteCommand([]string{"exit"}); !errors.Is(err, io.EOF) {
		t.Errorf("Expected exit to wrap io.EOF, got %v", err)
	}
	if err := c.ExecuteCommand([]string{"dance"}); err == nil {
		t.Error("Expected unknown command error")
	}
	out.Reset()
	c.ExecuteCommand([]string{"help", "projects"})
	if !strings.Contains(out.String(), "projects <user>") {
		t.Errorf("Unexpected help %q", out.String())
	}
}
