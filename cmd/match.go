package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/matching"
	"github.com/spigell/cv-matcher/internal/storage"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank stored resumes against the selected job",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("job", "", "job id to match against (selects it)")
	matchCmd.Flags().StringSlice("exclude", nil, "resume ids to leave out of the run")
	matchCmd.Flags().Bool("dedupe", false, "score only the latest resume per candidate email")
	matchCmd.Flags().StringSlice("disable-filter", nil, "filter names to skip (valid_cv, excluded, duplicates)")

	viper.BindPFlag("match.dedupe", matchCmd.Flags().Lookup("dedupe"))
	viper.BindPFlag("match.disabled-filters", matchCmd.Flags().Lookup("disable-filter"))
}

func match(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}

	svc, err := newServices(ctx, logger, true)
	if err != nil {
		logger.Fatal("preparing services", zap.Error(err))
	}
	defer svc.Close()

	jobID, _ := cmd.Flags().GetString("job")
	job, err := resolveJob(svc.jobs, strings.TrimSpace(jobID))
	if err != nil {
		logger.Fatal("choosing a job", zap.Error(err))
	}

	candidates, err := svc.resumes.List()
	if err != nil {
		logger.Fatal("loading resumes", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(ctx, svc.config.Server.MatchTimeout)
	defer cancel()

	excluded, _ := cmd.Flags().GetStringSlice("exclude")
	pipeline := svc.pipelineExcluding(excluded)
	logFilters(logger, pipeline.Filters())

	report, err := pipeline.Run(ctx, job.Matching(), candidates)
	if err != nil {
		logger.Fatal("matching failed", zap.Error(err))
	}

	printReport(logger, report)
}

// resolveJob selects jobID when given, falls back to the stored selection and
// finally asks the user to pick a job.
func resolveJob(jobs *storage.JobStore, jobID string) (*storage.Job, error) {
	if jobID != "" {
		return jobs.Select(jobID)
	}

	job, err := jobs.Selected()
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	list, err := jobs.List()
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, matching.ErrNoJobSelected
	}

	items := make([]string, 0, len(list))
	for _, j := range list {
		items = append(items, fmt.Sprintf("%s %s (%s)", j.ID, j.Title, j.CreatedAt.Format("2006-01-02")))
	}

	jobPrompt := promptui.Select{
		Label: "Choose a job and press ENTER",
		Items: items,
	}
	idx, _, err := jobPrompt.Run()
	if err != nil {
		return nil, err
	}

	return jobs.Select(list[idx].ID)
}

func printReport(logger *zap.Logger, report *matching.Report) {
	logger.Info("matching finished",
		zap.String("job", report.JobTitle),
		zap.Strings("required_skills", report.Requirements.RequiredSkills),
		zap.Int("total", report.Total),
		zap.Int("scored", report.Scored),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)

	for _, f := range report.Failures {
		logger.Warn("candidate not scored", zap.String("resume_id", f.ResumeID), zap.String("error", f.Error))
	}

	if len(report.Top) == 0 {
		logger.Info("no candidates could be ranked")
		return
	}

	for i, result := range report.Top {
		fmt.Printf("%d. %s (%s) score %d/100\n", i+1, result.CandidateName, result.ResumeID, result.MatchScore)
		fmt.Printf("   skills %d/%d: %s\n", len(result.MatchedSkills), result.TotalRequiredSkills, strings.Join(result.MatchedSkills, ", "))
		if len(result.MissingSkills) > 0 {
			fmt.Printf("   missing: %s\n", strings.Join(result.MissingSkills, ", "))
		}
		fmt.Printf("   experience: %s\n", result.ExperienceMatch)
		fmt.Printf("   education: %s\n", result.EducationMatch)
		fmt.Printf("   %s\n", result.OverallExplanation)
	}
}
