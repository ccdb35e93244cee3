package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldvoice/fieldvoice/pkg/diary"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Browse diary entries",
}

var entriesFlags struct {
	jobID string
	limit int
}

// entryList renders entry summaries for table output.
type entryList []diary.EntrySummary

func (l entryList) Headers() []string {
	return []string{"ID", "WHEN", "SUMMARY"}
}

func (l entryList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{e.ID, e.EntryTS.Format(time.RFC3339), e.Summary})
	}
	return rows
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a job's entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := diaryClient()
		if err != nil {
			return err
		}
		entries, err := client.ListEntries(cmd.Context(), entriesFlags.jobID, entriesFlags.limit)
		if err != nil {
			return err
		}
		return output(entryList(entries))
	},
}

var entriesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a job's entries by text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := diaryClient()
		if err != nil {
			return err
		}
		entries, err := client.SearchEntries(cmd.Context(), entriesFlags.jobID, args[0], entriesFlags.limit)
		if err != nil {
			return err
		}
		return output(entryList(entries))
	},
}

func init() {
	entriesCmd.PersistentFlags().StringVar(&entriesFlags.jobID, "job", "", "job ID (required)")
	entriesCmd.PersistentFlags().IntVar(&entriesFlags.limit, "limit", 20, "maximum entries")
	entriesCmd.MarkPersistentFlagRequired("job")

	entriesCmd.AddCommand(entriesListCmd, entriesSearchCmd)
	rootCmd.AddCommand(entriesCmd)
}
