package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
	"github.com/Sternrassler/dino-catalog/pkg/pagination"
)

func newValuesCmd(a *app) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:       "values [diet|locomotion]",
		Short:     "Audit stored diet and locomotion values against the filters",
		Long:      "values fetches every record and reports each distinct stored value, then how the known filter values match them exactly, ignoring case and as substrings.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"diet", "locomotion"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pagination.DefaultConfig()
			if concurrency > 0 {
				cfg.MaxConcurrency = concurrency
			}
			records, err := pagination.NewBatchFetcher(a.client, cfg).FetchAll(cmd.Context(), catalog.Filters{})
			if err != nil {
				return fmt.Errorf("fetch records: %w", err)
			}

			var audits []catalog.ValueAudit
			if len(args) == 0 || args[0] == "diet" {
				audits = append(audits, catalog.AuditValues(records, "diet", catalog.DietOf, catalog.Diets))
			}
			if len(args) == 0 || args[0] == "locomotion" {
				audits = append(audits, catalog.AuditValues(records, "locomotion_type", catalog.LocomotionOf, catalog.LocomotionTypes))
			}

			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, audits)
			}
			fmt.Fprintf(out, "%d records\n", len(records))
			for _, audit := range audits {
				fmt.Fprintln(out)
				printAudit(out, audit)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Parallel page requests")
	return cmd
}

func printAudit(w io.Writer, audit catalog.ValueAudit) {
	fmt.Fprintf(w, "%s values:\n", audit.Field)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, v := range audit.Values {
		fmt.Fprintf(tw, "  %q\t%d\t%s\n", v.Value, v.Count, strings.Join(v.Examples, ", "))
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%s filter matches:\n", audit.Field)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  FILTER\tEXACT\tIGNORE CASE\tCONTAINS\t")
	for _, m := range audit.Filters {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%s\n", m.Filter, m.Exact, m.CaseInsensitive, m.Contains, variants(m.Variants))
	}
	tw.Flush()
}

func variants(v []string) string {
	if len(v) == 0 {
		return ""
	}
	quoted := make([]string, len(v))
	for i, s := range v {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "stored as " + strings.Join(quoted, ", ")
}
