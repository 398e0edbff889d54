package fsm

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Describe renders the table for logs and golden tests: one row per
// transition in match order, then entry and exit actions per state.
func (t *Table) Describe(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "machine %s (initial: %s)\n", name, t.StateName(t.initial))

	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FROM\tEVENT\tTO\tGUARD\tACTIONS")
	for _, tr := range t.transitions {
		guard := "-"
		if tr.Guard != nil {
			guard = tr.Guard.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.StateName(tr.From),
			t.EventName(tr.Event),
			t.StateName(tr.To),
			guard,
			joinActions(tr.Actions),
		)
	}
	tw.Flush()

	for _, s := range t.States() {
		entry, exit := t.entry[s], t.exit[s]
		if len(entry) == 0 && len(exit) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "state %s\n", t.StateName(s))
		if len(entry) > 0 {
			fmt.Fprintf(&sb, "  entry: %s\n", joinActions(entry))
		}
		if len(exit) > 0 {
			fmt.Fprintf(&sb, "  exit: %s\n", joinActions(exit))
		}
	}
	return sb.String()
}

func joinActions(actions []Action) string {
	if len(actions) == 0 {
		return "-"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
