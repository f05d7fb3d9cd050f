package cmd

import (
	"fmt"

	"github.com/jmehdipour/wa-bulk-sender/internal/recipients"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var (
		numbers   string
		normalize bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load a recipients file and print what a send would process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("normalize") {
				cfg.Recipients.Normalize = normalize
			}

			var opts []recipients.Option
			if cfg.Recipients.Normalize {
				opts = append(opts, recipients.Normalize(cfg.Recipients.CountryCode))
			}

			list, err := recipients.LoadFile(numbers, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			seen := make(map[string]int, len(list))
			for i, r := range list {
				seen[r.String()]++
				fmt.Fprintf(out, "%4d  %s\n", i+1, r)
			}

			dups := 0
			for _, n := range seen {
				if n > 1 {
					dups += n - 1
				}
			}
			fmt.Fprintf(out, "\n%d recipients (%d unique, %d duplicates)\n", len(list), len(seen), dups)
			return nil
		},
	}

	cmd.Flags().StringVarP(&numbers, "numbers", "n", "", "path to text file with one phone number per line")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "normalize numbers to international format")
	_ = cmd.MarkFlagRequired("numbers")

	return cmd
}
