package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"xcs/internal/env"
)

func (c *cli) newGenerateCmd() *cobra.Command {
	var (
		addressBits int
		count       int
		seed        int64
		out         string
		phenotype   string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a multiplexer dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			ds, err := env.GenerateMultiplexer(rand.New(rand.NewSource(seed)), addressBits, count)
			if err != nil {
				return err
			}
			if err := env.WriteTableFile(out, ds, phenotype); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "wrote %s instances of the %d-bit multiplexer to %s\n",
				humanize.Comma(int64(len(ds.Instances))), ds.Space.NumAttributes(), out)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&addressBits, "address-bits", 2, "multiplexer address bits")
	fl.IntVar(&count, "count", 0, "random instances to draw; 0 enumerates every input")
	fl.Int64Var(&seed, "seed", 0, "random seed")
	fl.StringVar(&out, "out", "multiplexer.txt", "output file")
	fl.StringVar(&phenotype, "phenotype-label", "Class", "name of the class column")
	return cmd
}
