package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/longbox-labs/comicscan/internal/classify"
	"github.com/longbox-labs/comicscan/internal/confidence"
	"github.com/longbox-labs/comicscan/internal/imagepipe"
	"github.com/longbox-labs/comicscan/internal/models"
	"github.com/longbox-labs/comicscan/internal/reprint"
	"github.com/spf13/cobra"
)

func newIdentifyCmd() *cobra.Command {
	var includeReprints bool

	cmd := &cobra.Command{
		Use:   "identify <image>",
		Short: "Identify a single comic photograph",
		Long: `Runs one photograph through the classifier and prints the ranked
candidates. This is the single-photo flow: it reports the finer confidence
checkpoints ("locked in", "pretty confident", manual) instead of the batch
tiers, and never creates a catalog record.`,
		Example: `  comicscan identify cover.jpg

  # Keep reprint and facsimile matches in the output
  comicscan identify --include-reprints cover.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imageData, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read photograph: %w", err)
			}

			compressed, err := imagepipe.Compress(imageData)
			if err != nil {
				return err
			}

			classifier, err := classify.New()
			if err != nil {
				return err
			}

			candidates, err := classifier.Classify(cmd.Context(), compressed)
			if err != nil {
				return err
			}

			kept, suppressed := reprint.NewFilter().Apply(candidates, !includeReprints)
			if len(kept) > models.MaxCandidates {
				kept = kept[:models.MaxCandidates]
			}

			if len(kept) == 0 {
				if len(suppressed) > 0 {
					fmt.Println("Only reprint/facsimile matches were found. Re-run with --include-reprints to see them.")
					return nil
				}
				fmt.Println("No catalog match was found for this photo.")
				return nil
			}

			// Both readouts come from the same score; the checkpoint is a
			// finer presentation of it, never a re-derivation.
			top := kept[0]
			checkpoint := confidence.CheckpointFor(top.Score)
			fmt.Printf("%s: %s %s (%.0f%%)\n\n", checkpoint.Copy(), displayTitle(top), top.IssueLabel, top.Score*100)

			fmt.Println(renderCandidateTable(kept))
			if len(suppressed) > 0 {
				fmt.Printf("\n%d reprint/facsimile match(es) suppressed.\n", len(suppressed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeReprints, "include-reprints", false, "Keep reprint and facsimile matches")

	return cmd
}

func displayTitle(c models.Candidate) string {
	if c.SeriesName != "" {
		return c.SeriesName
	}
	return c.Title
}

func renderCandidateTable(candidates []models.Candidate) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Series", "Issue", "Publisher", "Year", "Score", "Tier"})

	for i, c := range candidates {
		year := ""
		if c.Year != 0 {
			year = fmt.Sprintf("%d", c.Year)
		}
		tw.AppendRow(table.Row{
			i + 1,
			displayTitle(c),
			c.IssueLabel,
			c.Publisher,
			year,
			fmt.Sprintf("%.2f", c.Score),
			string(confidence.TierFor(c.Score)),
		})
	}

	return tw.Render()
}
