package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/resume"
)

var resumesCmd = &cobra.Command{
	Use:   "resumes",
	Short: "Manage parsed resumes",
}

var resumesAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Parse and store resumes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addResumes(cmd, args)
	},
}

var resumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored resumes",
	Run: func(_ *cobra.Command, _ []string) {
		svc := offlineServices()
		defer svc.Close()

		records, err := svc.resumes.List()
		if err != nil {
			svc.logger.Fatal("listing resumes", zap.Error(err))
		}
		if len(records) == 0 {
			svc.logger.Info("no resumes stored")
			return
		}
		for _, rec := range records {
			fmt.Printf("%s  %-30s  %-25s  %d skills\n", rec.ID, rec.DisplayName(), rec.SourceFile, len(rec.Skills))
		}
	},
}

var resumesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a resume, or all resumes with --all",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc := offlineServices()
		defer svc.Close()

		all, _ := cmd.Flags().GetBool("all")
		switch {
		case all:
			if err := svc.resumes.DeleteAll(); err != nil {
				svc.logger.Fatal("deleting resumes", zap.Error(err))
			}
			svc.logger.Info("all resumes deleted")
		case len(args) == 1:
			if err := svc.resumes.Delete(args[0]); err != nil {
				svc.logger.Fatal("deleting resume", zap.Error(err))
			}
			svc.logger.Info("resume deleted", zap.String("resume_id", args[0]))
		default:
			svc.logger.Fatal("a resume id or --all is required")
		}
	},
}

func init() {
	rootCmd.AddCommand(resumesCmd)
	resumesCmd.AddCommand(resumesAddCmd, resumesListCmd, resumesDeleteCmd)

	resumesAddCmd.Flags().StringP("language", "l", "", "output language of the parsed fields: en or ar (default from ai.output-language)")
	resumesDeleteCmd.Flags().Bool("all", false, "delete every resume")
}

func addResumes(cmd *cobra.Command, files []string) {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}

	svc, err := newServices(ctx, logger, true)
	if err != nil {
		logger.Fatal("preparing services", zap.Error(err))
	}
	defer svc.Close()

	lang := svc.language
	if flag, _ := cmd.Flags().GetString("language"); flag != "" {
		if lang, err = resume.ParseLanguage(flag); err != nil {
			logger.Fatal("invalid language", zap.Error(err))
		}
	}

	stored := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Error("reading resume", zap.String("file", file), zap.Error(err))
			continue
		}

		rec, err := svc.ingest.Ingest(ctx, file, data, lang)
		if errors.Is(err, classifier.ErrDocumentRejected) {
			logger.Warn("skipping document", zap.String("file", file), zap.Error(err))
			continue
		}
		if err != nil {
			logger.Error("processing resume", zap.String("file", file), zap.Error(err))
			continue
		}

		logger.Info("resume added",
			zap.String("resume_id", rec.ID),
			zap.String("name", rec.DisplayName()),
			zap.Int("skills", len(rec.Skills)),
		)
		stored++
	}

	logger.Info("resumes processed", zap.Int("files", len(files)), zap.Int("stored", stored))
}
