package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"talent-match/internal/delivery/http/dto"
	"talent-match/internal/domain/matching"

	"github.com/spf13/cobra"
)

// rankInput accepts a single job or a list of jobs against one candidate pool.
type rankInput struct {
	Job        *dto.JobRequest        `json:"job,omitempty"`
	Jobs       []dto.JobRequest       `json:"jobs,omitempty"`
	Candidates []dto.CandidateRequest `json:"candidates"`
	TopK       int                    `json:"top_k"`
}

func newRankCmd(opts *rootOptions) *cobra.Command {
	var (
		input  string
		topK   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank candidates for one or more jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in rankInput
			if err := readInput(input, &in); err != nil {
				return err
			}
			if cmd.Flags().Changed("top-k") {
				in.TopK = topK
			}
			if in.Job == nil && len(in.Jobs) == 0 {
				return errors.New("input needs job or jobs")
			}

			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			if len(in.Jobs) > 0 {
				results, report, err := c.Matching.RankMany(cmd.Context(), dto.JobProfiles(in.Jobs), dto.CandidateProfiles(in.Candidates), in.TopK)
				if err != nil {
					return err
				}
				if format == "table" {
					for _, j := range in.Jobs {
						fmt.Fprintf(out, "job %s %s\n", j.ID, j.Title)
						if err := writeTable(out, results[j.ID]); err != nil {
							return err
						}
					}
					return nil
				}
				return writeJSON(out, dto.NewRankManyResponse(results, report))
			}

			results, report, err := c.Matching.Rank(cmd.Context(), in.Job.Profile(), dto.CandidateProfiles(in.Candidates), in.TopK)
			if err != nil {
				return err
			}
			if format == "table" {
				return writeTable(out, results)
			}
			return writeJSON(out, dto.RankResponse{Results: results, Report: report})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON input file, - for stdin")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "results per job, 0 for all")
	cmd.Flags().StringVar(&format, "format", "json", "json or table")
	return cmd
}

func writeTable(w io.Writer, results []matching.MatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCANDIDATE\tSCORE\tSKILLS\tREASONING")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%d\t%s\n", i+1, r.CandidateID, r.TotalScore, len(r.MatchedSkills), r.Reasoning)
	}
	return tw.Flush()
}
