package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldvoice/fieldvoice/pkg/cli"
)

var debriefCmd = &cobra.Command{
	Use:   "debrief <job-name-or-id> [text...]",
	Short: "File a one-shot debrief against a job",
	Long: `File a transcript against a job named by UUID or plain name.
An unknown name creates the job. The job's state is stamped with the
debrief time and a short excerpt.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := diaryClient()
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("debrief text is empty")
		}
		result, err := client.Debrief(cmd.Context(), args[0], text)
		if err != nil {
			return err
		}
		cli.PrintSuccess("Debrief filed under %s (entry %s)", result.Job.Name, result.Entry.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(debriefCmd)
}
