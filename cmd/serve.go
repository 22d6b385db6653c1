package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
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

	logger.Info("starting the cv-matcher server", zap.String("version", resolveVersion()))
	logFilters(logger, svc.pipeline.Filters())

	cfg := svc.config.Server
	srv := server.New(cfg.Addr, server.Deps{
		Jobs:            svc.jobs,
		Resumes:         svc.resumes,
		Ingest:          svc.ingest,
		Extractor:       svc.extractor,
		Matcher:         svc.pipeline,
		Logger:          logger,
		DefaultLanguage: svc.language,
		MaxUploadBytes:  int64(cfg.MaxUploadMB) << 20,
		MatchTimeout:    cfg.MatchTimeout,
	})

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
