package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage job descriptions",
}

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a job description from text or a file",
	Run: func(cmd *cobra.Command, _ []string) {
		addJob(cmd)
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored jobs, newest first",
	Run: func(_ *cobra.Command, _ []string) {
		listJobs()
	},
}

var jobsSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Select the job the next match uses",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		svc := offlineServices()
		defer svc.Close()

		job, err := svc.jobs.Select(args[0])
		if err != nil {
			svc.logger.Fatal("selecting job", zap.Error(err))
		}
		svc.logger.Info("job selected", zap.String("job_id", job.ID), zap.String("title", job.Title))
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a job, or all jobs with --all",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := offlineServices()
		defer svc.Close()

		all, _ := cmd.Flags().GetBool("all")
		switch {
		case all:
			if err := svc.jobs.DeleteAll(); err != nil {
				svc.logger.Fatal("deleting jobs", zap.Error(err))
			}
			svc.logger.Info("all jobs deleted")
		case len(args) == 1:
			if err := svc.jobs.Delete(args[0]); err != nil {
				svc.logger.Fatal("deleting job", zap.Error(err))
			}
			svc.logger.Info("job deleted", zap.String("job_id", args[0]))
		default:
			svc.logger.Fatal("a job id or --all is required")
		}
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsAddCmd, jobsListCmd, jobsSelectCmd, jobsDeleteCmd)

	jobsAddCmd.Flags().StringP("title", "t", "", "job title")
	jobsAddCmd.Flags().String("description", "", "job description text")
	jobsAddCmd.Flags().StringP("file", "f", "", "read the description from a PDF, DOCX or text file")
	jobsAddCmd.Flags().Bool("select", false, "select the job after adding it")
	jobsDeleteCmd.Flags().Bool("all", false, "delete every job")
}

// offlineServices prepares the stores without a model client.
func offlineServices() *services {
	logger, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}
	svc, err := newServices(context.Background(), logger, false)
	if err != nil {
		logger.Fatal("preparing services", zap.Error(err))
	}
	return svc
}

func addJob(cmd *cobra.Command) {
	svc := offlineServices()
	defer svc.Close()

	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	file, _ := cmd.Flags().GetString("file")

	var source string
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			svc.logger.Fatal("reading job file", zap.Error(err))
		}
		text, err := svc.extractor.Text(context.Background(), file, data)
		if err != nil {
			svc.logger.Fatal("extracting job description", zap.Error(err))
		}
		description = text
		source = filepath.Base(file)
	}

	job, err := svc.jobs.Add(title, description, source)
	if err != nil {
		svc.logger.Fatal("adding job", zap.Error(err))
	}
	svc.logger.Info("job added", zap.String("job_id", job.ID), zap.String("title", job.Title))

	if sel, _ := cmd.Flags().GetBool("select"); sel {
		if _, err := svc.jobs.Select(job.ID); err != nil {
			svc.logger.Fatal("selecting job", zap.Error(err))
		}
		svc.logger.Info("job selected", zap.String("job_id", job.ID))
	}
}

func listJobs() {
	svc := offlineServices()
	defer svc.Close()

	jobs, err := svc.jobs.List()
	if err != nil {
		svc.logger.Fatal("listing jobs", zap.Error(err))
	}
	if len(jobs) == 0 {
		svc.logger.Info("no jobs stored")
		return
	}

	for _, job := range jobs {
		marker := " "
		if job.Selected {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  %s\n", marker, job.ID, job.CreatedAt.Format("2006-01-02 15:04"), job.Title)
	}
}
