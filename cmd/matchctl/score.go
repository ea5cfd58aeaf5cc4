package main

import (
	"talent-match/internal/delivery/http/dto"

	"github.com/spf13/cobra"
)

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one candidate against one job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in dto.ScoreRequest
			if err := readInput(input, &in); err != nil {
				return err
			}

			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Matching.ScoreOne(cmd.Context(), in.Job.Profile(), in.Candidate.Profile())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON input file, - for stdin")
	return cmd
}
