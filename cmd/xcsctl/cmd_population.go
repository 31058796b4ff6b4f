package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (c *cli) newPopulationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "population",
		Short: "Inspect stored rule populations",
	}
	cmd.AddCommand(c.newPopulationListCmd(), c.newPopulationShowCmd())
	return cmd
}

func (c *cli) newPopulationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List runs with a stored population",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()
			ids, err := client.StoredRuns(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(c.stdout, id)
			}
			return nil
		},
	}
}

func (c *cli) newPopulationShowCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the latest population of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()
			snapshot, err := client.Population(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(c.stdout, snapshot)
			}

			fmt.Fprintf(c.stdout, "# run %s at iteration %s: %s macro / %s micro classifiers\n",
				snapshot.RunID,
				humanize.Comma(int64(snapshot.Iteration)),
				humanize.Comma(int64(len(snapshot.Rows))),
				humanize.Comma(int64(snapshot.MicroSize)))
			fmt.Fprintln(c.stdout, strings.Join(snapshot.Header, "\t"))
			for i, row := range snapshot.Rows {
				if limit > 0 && i >= limit {
					fmt.Fprintf(c.stdout, "# %s more rows\n", humanize.Comma(int64(len(snapshot.Rows)-limit)))
					break
				}
				fmt.Fprintln(c.stdout, strings.Join(row, "\t"))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many rules")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}
