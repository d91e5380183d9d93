package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/dino-catalog/pkg/catalog"
)

// filterFlags are the listing filters shared by list and browse.
type filterFlags struct {
	search     string
	diet       string
	locomotion string
	period     string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Substring of name or description")
	cmd.Flags().StringVar(&f.diet, "diet", "", "Diet ("+strings.Join(catalog.Diets, ", ")+")")
	cmd.Flags().StringVar(&f.locomotion, "locomotion", "", "Locomotion ("+strings.Join(catalog.LocomotionTypes, ", ")+")")
	cmd.Flags().StringVar(&f.period, "period", "", "Geological period ("+strings.Join(catalog.Eras, ", ")+")")
}

func (f *filterFlags) filters() catalog.Filters {
	return catalog.Filters{
		Search:         f.search,
		Diet:           f.diet,
		LocomotionType: f.locomotion,
		Era:            f.period,
	}.Normalize()
}

func newListCmd(a *app) *cobra.Command {
	var ff filterFlags
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := catalog.Query{Filters: ff.filters(), Page: page, Limit: limit}
			p, err := a.client.ListDinosaurs(cmd.Context(), q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, p)
			}
			printTable(out, p.Data)
			fmt.Fprintln(out, pageFooter(p.Pagination, q.Filters))
			return nil
		},
	}

	ff.register(cmd)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&limit, "limit", "l", catalog.DefaultPageSize, "Records per page")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Search names and descriptions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.client.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No dinosaurs found.")
				return nil
			}
			printTable(out, results)
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the full record of one dinosaur",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.client.GetDinosaur(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if a.json {
				return printJSON(cmd.OutOrStdout(), d)
			}
			printDetail(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.Count(cmd.Context())
			if err != nil {
				return err
			}
			if a.json {
				return printJSON(cmd.OutOrStdout(), map[string]int{"total": n})
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show diet and locomotion distributions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, stats)
			}
			fmt.Fprintf(out, "Total: %d\n\n", stats.TotalDinosaurs)
			printDistribution(out, "Diet", stats.DietDistribution)
			fmt.Fprintln(out)
			printDistribution(out, "Locomotion", stats.LocomotionDistribution)
			return nil
		},
	}
}
