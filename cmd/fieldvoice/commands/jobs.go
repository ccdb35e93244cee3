package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldvoice/fieldvoice/pkg/cli"
	"github.com/fieldvoice/fieldvoice/pkg/diary"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage diary jobs",
}

var jobsListLimit int

// jobList renders jobs for table output.
type jobList []diary.Job

func (l jobList) Headers() []string {
	return []string{"ID", "NAME", "STATUS", "UPDATED"}
}

func (l jobList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, j := range l {
		rows = append(rows, []string{j.ID, j.Name, j.Status, j.UpdatedAt.Format(time.RFC3339)})
	}
	return rows
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := diaryClient()
		if err != nil {
			return err
		}
		jobs, err := client.ListJobs(cmd.Context(), jobsListLimit)
		if err != nil {
			return err
		}
		return output(jobList(jobs))
	},
}

var jobsCreateFlags struct {
	address    string
	clientName string
	fromFile   string
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a job",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := diaryClient()
		if err != nil {
			return err
		}

		var req struct {
			Name       string `yaml:"name" json:"name"`
			Address    string `yaml:"address" json:"address"`
			ClientName string `yaml:"client_name" json:"client_name"`
		}
		if jobsCreateFlags.fromFile != "" {
			if err := cli.LoadRequest(jobsCreateFlags.fromFile, &req); err != nil {
				return err
			}
		}
		if len(args) == 1 {
			req.Name = args[0]
		}
		if jobsCreateFlags.address != "" {
			req.Address = jobsCreateFlags.address
		}
		if jobsCreateFlags.clientName != "" {
			req.ClientName = jobsCreateFlags.clientName
		}
		if req.Name == "" {
			return fmt.Errorf("job name is required (argument or --from-file)")
		}

		job, err := client.CreateJob(cmd.Context(), req.Name, req.Address, req.ClientName)
		if err != nil {
			return err
		}
		cli.PrintSuccess("Created job %s (%s)", job.Name, job.ID)
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := diaryClient()
		if err != nil {
			return err
		}
		job, err := client.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(job)
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id> <quoted|in_progress|complete|on_hold>",
	Short: "Update a job's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := diaryClient()
		if err != nil {
			return err
		}
		status := args[1]
		job, err := client.UpdateJob(cmd.Context(), args[0], diary.JobUpdate{Status: &status})
		if err != nil {
			return err
		}
		cli.PrintSuccess("%s is now %s", job.Name, job.Status)
		return nil
	},
}

func init() {
	jobsListCmd.Flags().IntVar(&jobsListLimit, "limit", 20, "maximum jobs to list")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.address, "address", "", "job address")
	jobsCreateCmd.Flags().StringVar(&jobsCreateFlags.clientName, "client", "", "client name")
	jobsCreateCmd.Flags().StringVarP(&jobsCreateFlags.fromFile, "from-file", "f", "", "YAML/JSON request file")

	jobsCmd.AddCommand(jobsListCmd, jobsCreateCmd, jobsShowCmd, jobsStatusCmd)
	rootCmd.AddCommand(jobsCmd)
}
