package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/ganttree/pkg/debug"
	"github.com/vanderheijden86/ganttree/pkg/tree"
	"github.com/vanderheijden86/ganttree/pkg/ui"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the source and report tasks the tree cannot place",
		Long: `Load tasks the way "tree" does and report parent-link cycles, orphaned
child tasks and duplicate ids. For GitLab sources the token is checked
first. Exits non-zero when cycles are found.`,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cfg := getConfig(cmd)
	out := cmd.OutOrStdout()
	theme := ui.NewTheme(out)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "Source:   %s\n", a.source)
	if a.client != nil {
		user, err := a.client.CurrentUser(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking %s: %w", a.client.Instance(), err)
		}
		fmt.Fprintf(out, "GitLab:   %s as @%s\n", a.client.Instance(), user.Username)
	}

	res, err := a.fetcher.Fetch(cmd.Context(), a.listOptions())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Tasks:    %d\n", len(res.Tasks))
	if res.Changes != nil {
		fmt.Fprintf(out, "Changes:  %s since last fetch\n", res.Changes.Summary())
	}
	if db := a.fetcher.Snapshots; db != nil {
		if views, err := db.Projects(); err != nil {
			debug.Warn("list snapshots", err)
		} else {
			fmt.Fprintf(out, "Cached:   %d view(s) in %s\n", len(views), db.Path())
		}
	}
	if a.cfg.Hierarchy.Enabled {
		s := res.Stats
		fmt.Fprintf(out, "Parents:  %d resolved of %d requested", s.Parents, s.Requested)
		if s.FallbackUsed {
			fmt.Fprintf(out, " (title inference linked %d)", s.Inferred)
		}
		fmt.Fprintln(out)
	}

	log := &tree.DiagnosticLog{}
	tree.NewBuilder(tree.WithDiagnostics(log)).Build(res.Tasks)
	cycles := tree.DetectParentCycles(res.Tasks)

	report := func(label string, items []string) {
		if len(items) == 0 {
			fmt.Fprintf(out, "%-9s none\n", label+":")
			return
		}
		fmt.Fprintf(out, "%-9s %s\n", label+":", theme.Warning.Render(fmt.Sprintf("%d", len(items))))
		for _, item := range items {
			fmt.Fprintf(out, "  - %s\n", item)
		}
	}

	cycleLines := make([]string, len(cycles))
	for i, c := range cycles {
		cycleLines[i] = strings.Join(c, " → ") + " → " + c[0]
	}
	report("Cycles", cycleLines)
	report("Orphans", diagnosticLines(log, tree.DiagnosticOrphanChild))
	report("Dupes", diagnosticLines(log, tree.DiagnosticDuplicateID))

	if len(cycles) > 0 {
		return fmt.Errorf("found %d parent cycle(s)", len(cycles))
	}
	return nil
}

func diagnosticLines(log *tree.DiagnosticLog, kind tree.DiagnosticKind) []string {
	var lines []string
	for _, d := range log.ByKind(kind) {
		lines = append(lines, fmt.Sprintf("#%s %s", d.TaskID, d.Message))
	}
	return lines
}
