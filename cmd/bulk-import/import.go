package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/coursetrack-api/internal/models"
	"github.com/noah-isme/coursetrack-api/internal/repository"
	"github.com/noah-isme/coursetrack-api/internal/service"
	"github.com/noah-isme/coursetrack-api/pkg/config"
	"github.com/noah-isme/coursetrack-api/pkg/database"
	"github.com/noah-isme/coursetrack-api/pkg/logger"
)

type importOptions struct {
	kind    string
	file    string
	dryRun  bool
	actorID string
	verbose bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a CSV or XLSX file in a single transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.kind, "kind", "", "Entity kind: students, faculty or courses (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to the CSV or XLSX file (required)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Validate every row and roll back")
	cmd.Flags().StringVar(&opts.actorID, "actor", "", "User id recorded in the audit log")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Print every row outcome")

	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	kind, ok := models.ParseImportKind(opts.kind)
	if !ok {
		return fmt.Errorf("invalid --kind %q: want students, faculty or courses", opts.kind)
	}

	content, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.file, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	isolation, err := database.ParseIsolationLevel(cfg.Import.IsolationLevel)
	if err != nil {
		return err
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	users := repository.NewUserRepository(db)
	svc := service.NewImportService(db, service.ImportStores{
		Users:      users,
		Students:   repository.NewStudentRepository(db),
		Faculty:    repository.NewFacultyRepository(db),
		Courses:    repository.NewCourseRepository(db),
		Savepoints: repository.NewSavepoints(),
		Audit:      users,
	}, service.NewBcryptHasher(cfg.Import.BcryptCost), nil, nil, logr, service.ImportConfig{IsolationLevel: isolation})

	result := svc.Run(cmd.Context(), kind, service.ImportUpload{
		Filename: filepath.Base(opts.file),
		Content:  content,
	}, service.ImportOptions{DryRun: opts.dryRun, ActorID: opts.actorID, UserAgent: "bulk-import-cli"})

	logr.Debug("cli import finished", zap.String("batch_id", result.BatchID))
	writeSummary(cmd.OutOrStdout(), result, opts.verbose)
	if !result.Succeeded() {
		return fmt.Errorf("import %s", result.FailureType)
	}
	return nil
}
