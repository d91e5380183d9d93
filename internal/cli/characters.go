package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/dino-catalog/pkg/characters"
)

func newCharactersCmd(a *app) *cobra.Command {
	var random int

	cmd := &cobra.Command{
		Use:   "characters [query]",
		Short: "Search the character roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			var matches []characters.Match
			if random > 0 {
				for _, c := range characters.Random(random) {
					matches = append(matches, characters.Match{Character: c})
				}
			} else {
				var err error
				matches, err = a.client.SearchCharacters(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, matches)
			}
			if len(matches) == 0 {
				fmt.Fprintln(out, "No characters found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSCORE\tCATEGORIES\tCATCHPHRASE")
			for _, m := range matches {
				c := m.Character
				fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n", c.Name, m.Score, strings.Join(c.Categories, ", "), c.Catchphrase)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&random, "random", 0, "Pick n random characters instead of searching")
	return cmd
}
