package cli

import (
	"fmt"
	"sort"
	"strings"

	"TacticalBoard/internal/state"
)

func (c *CLI) handleUser(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: user add|del|list")
	}
	switch args[0] {
	case "add":
		return c.handleAddUser(args[1:])
	case "del":
		if len(args) != 2 {
			return fmt.Errorf("usage: user del <name>")
		}
		if err := c.Store.UserDelete(args[1]); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		fmt.Fprintf(c.Out, "User '%s' deleted\n", args[1])
		return nil
	case "list":
		users, err := c.Store.UserList()
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Fprintln(c.Out, "No users")
		}
		for _, u := range users {
			fmt.Fprintln(c.Out, u)
		}
		return nil
	default:
		return fmt.Errorf("unknown user command: %s", args[0])
	}
}

func (c *CLI) handleAddUser(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: user add <name> [password]")
	}
	username := args[0]
	var password string
	if len(args) > 1 {
		password = args[1]
	} else {
		var err error
		if password, err = c.promptForPassword("Password for " + username + ": "); err != nil {
			return err
		}
	}
	if err := c.Store.UserAdd(username, password); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(c.Out, "User '%s' created\n", username)
	return nil
}

func (c *CLI) promptForPassword(prompt string) (string, error) {
	if c.RL == nil {
		return "", fmt.Errorf("password required")
	}
	pw, err := c.RL.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (c *CLI) handleProjects(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: projects <user>")
	}
	infos, err := c.Store.ProjectList(args[0])
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintf(c.Out, "No projects for %s\n", args[0])
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(c.Out, "%-30s %s\n", info.Name, info.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (c *CLI) handleProject(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: project show|del <user> <name>")
	}
	owner, name := args[1], args[2]
	switch args[0] {
	case "show":
		data, err := c.Store.ProjectLoad(owner, name)
		if err != nil {
			return err
		}
		p, err := state.DecodeProject(data)
		if err != nil {
			return err
		}
		c.printProject(p)
		return nil
	case "del":
		if err := c.Store.ProjectDelete(owner, name); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "Project '%s' deleted\n", name)
		return nil
	default:
		return fmt.Errorf("unknown project command: %s", args[0])
	}
}

func (c *CLI) printProject(p state.Project) {
	fmt.Fprintf(c.Out, "Project: %s (version %d)\n", p.Name, p.Version)
	fmt.Fprintf(c.Out, "Map:     %s\n", p.Background)
	fmt.Fprintf(c.Out, "Labels:  %d\n", len(p.Labels))

	maps := make([]string, 0, len(p.Primitives))
	for m := range p.Primitives {
		maps = append(maps, m)
	}
	sort.Strings(maps)
	for _, m := range maps {
		counts := make(map[state.Kind]int)
		for _, prim := range p.Primitives[m] {
			counts[prim.Kind()]++
		}
		parts := make([]string, 0, len(counts))
		for k, n := range counts {
			parts = append(parts, fmt.Sprintf("%s=%d", k, n))
		}
		sort.Strings(parts)
		fmt.Fprintf(c.Out, "  %-20s %s\n", m, strings.Join(parts, " "))
	}
}
