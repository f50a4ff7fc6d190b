// Package cli is the project server's interactive admin shell.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"TacticalBoard/internal/storage"
)

// ErrExit is returned by ExecuteCommand when the user asks to leave.
var ErrExit = fmt.Errorf("exit requested: %w", io.EOF)

type CLI struct {
	Store storage.Store
	RL    *readline.Instance
	Out   io.Writer
}

func NewCLI(store storage.Store, rl *readline.Instance) *CLI {
	return &CLI{Store: store, RL: rl, Out: os.Stdout}
}

// NewReadline builds the readline instance used by the shell.
func NewReadline(historyFile string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:          "tacticalboard> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("user",
				readline.PcItem("add"),
				readline.PcItem("del"),
				readline.PcItem("list"),
			),
			readline.PcItem("projects"),
			readline.PcItem("project",
				readline.PcItem("show"),
				readline.PcItem("del"),
			),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
}

// Loop runs commands until exit or EOF.
func (c *CLI) Loop() error {
	for {
		err := c.Run()
		switch {
		case err == nil:
		case errors.Is(err, readline.ErrInterrupt):
			fmt.Fprintln(c.Out, "Use 'exit' or 'quit' to exit.")
		case errors.Is(err, io.EOF):
			return nil
		default:
			fmt.Fprintln(c.Out, "Error:", err)
		}
	}
}

func (c *CLI) Run() error {
	line, err := c.RL.Readline()
	if err != nil {
		return err
	}
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	return c.ExecuteCommand(ParseArgs(line))
}

// ParseArgs splits a command line on spaces, keeping quoted runs together.
func ParseArgs(input string) []string {
	var args []string
	var currentArg strings.Builder
	inQuotes := false

	for _, char := range input {
		switch char {
		case '"':
			inQuotes = !inQuotes
		case ' ', '\t':
			if inQuotes {
				currentArg.WriteRune(char)
			} else if currentArg.Len() > 0 {
				args = append(args, currentArg.String())
				currentArg.Reset()
			}
		default:
			currentArg.WriteRune(char)
		}
	}
	if currentArg.Len() > 0 {
		args = append(args, currentArg.String())
	}
	return args
}

func (c *CLI) ExecuteCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}

	switch args[0] {
	case "user":
		return c.handleUser(args[1:])
	case "projects":
		return c.handleProjects(args[1:])
	case "project":
		return c.handleProject(args[1:])
	case "help":
		c.printHelp(strings.Join(args[1:], " "))
		return nil
	case "exit", "quit":
		fmt.Fprintln(c.Out, "Exiting...")
		return ErrExit
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (c *CLI) printHelp(command string) {
	if command == "" {
		fmt.Fprintln(c.Out, "Available commands:")
		names := make([]string, 0, len(commandHelp))
		for cmd := range commandHelp {
			names = append(names, cmd)
		}
		sort.Strings(names)
		for _, cmd := range names {
			fmt.Fprintf(c.Out, "  %s\n", cmd)
		}
		fmt.Fprintln(c.Out, "\nUse 'help <command>' for more information about a specific command.")
	} else if help, ok := commandHelp[command]; ok {
		fmt.Fprintln(c.Out, help)
	} else {
		fmt.Fprintf(c.Out, "Unknown command: %s\n", command)
	}
}

var commandHelp = map[string]string{
	"user": `Syntax: user add <name> [password] | user del <name> | user list
Description: Manages accounts on the project server. The password is prompted for when omitted.
Example: user add coach`,

	"projects": `Syntax: projects <user>
Description: Lists the projects a user has saved, most recent first.
Example: projects coach`,

	"project": `Syntax: project show <user> <name> | project del <user> <name>
Description: Shows a summary of one saved project, or deletes it.
Example: project show coach "Bermuda rotation"`,

	"exit": `Syntax: exit
Description: Leaves the shell. The server keeps running if it was started with it.`,
}
