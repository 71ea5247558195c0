package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/me/storefront/internal/guard"
	"github.com/spf13/cobra"
)

func newNavigateCmd(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "navigate <path>",
		Short: "Show where a page navigation ends up",
		Long: "Resolve a page path against the route table and apply the navigation guard\n" +
			"with the current session, printing the final location.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := a.table.Resolve(args[0])
			var fromTarget guard.Target
			if from != "" {
				fromTarget = a.table.Resolve(from)
			}

			d := a.guard.Decide(cmd.Context(), to, fromTarget)
			if d.Action != guard.Allow {
				fmt.Fprintf(a.out, "%s -> %s (%s)\n", to.Path, d.Location, d.Action)
				return nil
			}
			if !to.Found() {
				fmt.Fprintf(a.out, "%s: no such page\n", to.Path)
				return nil
			}
			fmt.Fprintf(a.out, "%s: %s%s\n", to.Path, displayName(to.Name), formatParams(to.Params))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Path the navigation starts from")
	return cmd
}

func newRoutesCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "routes",
		Short:       "List the page routes and their access rules",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipWiring: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadTable(); err != nil {
				return err
			}
			entries := a.table.Entries()
			if asJSON {
				return printJSON(a.out, entries)
			}

			fmt.Fprintf(a.out, "%-24s  %-20s  %-8s  %s\n", "PATTERN", "NAME", "ACCESS", "REDIRECT")
			fmt.Fprintf(a.out, "%-24s  %-20s  %-8s  %s\n", "-------", "----", "------", "--------")
			for _, e := range entries {
				access := "any"
				switch {
				case e.RequiresAuth:
					access = "auth"
				case e.PublicOnly:
					access = "public"
				}
				fmt.Fprintf(a.out, "%-24s  %-20s  %-8s  %s\n", e.Pattern, displayName(e.Name), access, e.Redirect)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func displayName(name string) string {
	if name == "" {
		return "-"
	}
	return name
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return " " + strings.Join(parts, " ")
}
