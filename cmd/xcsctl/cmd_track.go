package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"xcs/internal/model"
	"xcs/internal/stats"
)

func (c *cli) newTrackCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "track <run-id>...",
		Short: "Print learning progress; several runs are averaged",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()

			tracks := make([][]model.PopTrack, 0, len(args))
			for _, runID := range args {
				track, err := client.LearnTrack(cmd.Context(), runID)
				if err != nil {
					return err
				}
				tracks = append(tracks, track)
			}

			if len(tracks) == 1 {
				if asJSON {
					return writeJSON(c.stdout, tracks[0])
				}
				for _, p := range tracks[0] {
					fmt.Fprintln(c.stdout, p.String())
				}
				return nil
			}

			points := stats.AverageTracks(tracks)
			if asJSON {
				return writeJSON(c.stdout, points)
			}
			for _, p := range points {
				fmt.Fprintf(c.stdout, "Iteration: %s\t AccEstimate: %.4f\t MicroPop: %.1f\t Runs: %d\n",
					humanize.Comma(int64(p.Iteration)), p.Accuracy, p.MicroSize, p.Runs)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List indexed runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()
			runs, err := client.Runs()
			if err != nil {
				return err
			}
			for i, r := range runs {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintf(c.stdout, "%s\t%s\titerations=%s\tmicro=%s\ttrain_accuracy=%.4f\n",
					r.RunID, r.CreatedAtUTC, humanize.Comma(int64(r.Iterations)), humanize.Comma(int64(r.MicroSize)), r.TrainAccuracy)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "print at most this many runs")
	return cmd
}

func (c *cli) newExportCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Copy a run's artifacts to another directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()
			dir, err := client.Export(args[0], outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "exported %s to %s\n", args[0], dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "exports", "destination directory")
	return cmd
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
