package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/embedref/internal/scenario"
	"github.com/mesh-intelligence/embedref/pkg/types"
)

// menuItem is one numbered entry of the interactive menu.
type menuItem struct {
	choice int
	label  string
	run    func(a *app) step
}

// menuItems lists the operations in menu order. Number 6 is not assigned.
var menuItems = []menuItem{
	{1, "Clear all collections", func(a *app) step { return a.clearStep }},
	{2, "Insert sample students and courses", func(a *app) step { return a.seedStep }},
	{3, "Create enrollments (embedded and referenced)", func(a *app) step { return a.enrollStep }},
	{4, "Query enrollments and show document structures", func(a *app) step { return a.queryStep }},
	{5, "Update student name (demonstrate reference vs. embedded)", func(a *app) step {
		return a.updateStep(scenario.DefaultUpdateStudentID, scenario.DefaultUpdatedName)
	}},
	{7, "Run all operations in sequence", func(a *app) step { return a.runAllStep }},
}

const (
	menuExit      = 0
	menuMaxChoice = 7
)

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Choose operations from a numbered menu",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  a.runMenu,
	}
}

// parseChoice reads a menu selection. Anything that is not the number of a
// listed item is errInvalidChoice.
func parseChoice(line string) (menuItem, bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return menuItem{}, false, fmt.Errorf("%w: %q is not a number", errInvalidChoice, strings.TrimSpace(line))
	}
	if n == menuExit {
		return menuItem{}, true, nil
	}
	for _, item := range menuItems {
		if item.choice == n {
			return item, false, nil
		}
	}
	return menuItem{}, false, fmt.Errorf("%w: %d", errInvalidChoice, n)
}

func printMenu(w io.Writer) {
	fmt.Fprintln(w, "\n--- EMBEDREF STUDENT ENROLLMENT SYSTEM ---")
	fmt.Fprintln(w, "Please select an operation to perform:")
	for _, item := range menuItems {
		fmt.Fprintf(w, "%d. %s\n", item.choice, item.label)
	}
	fmt.Fprintf(w, "%d. Exit\n", menuExit)
	fmt.Fprint(w, "Enter your choice: ")
}

// runMenu reads choices until 0 or end of input. A failed operation is
// reported and the menu shown again; an unreachable store ends the session.
func (a *app) runMenu(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	printBootstrap(out, a.bootstrap)
	for {
		printMenu(out)
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		item, exit, err := parseChoice(in.Text())
		if err != nil {
			fmt.Fprintf(out, "Invalid input. Please enter a number between %d and %d.\n", menuExit, menuMaxChoice)
			continue
		}
		if exit {
			fmt.Fprintln(out, "Exiting the application...")
			return nil
		}

		fmt.Fprintln(out)
		if err := a.runStep(cmd, item.run(a)); err != nil {
			if errors.Is(err, types.ErrStoreUnavailable) {
				return err
			}
			fmt.Fprintln(out, "Error:", err)
		}

		fmt.Fprint(out, "\nPress Enter to continue...")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
	}
}
