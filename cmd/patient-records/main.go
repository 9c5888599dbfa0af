package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/patientrecords/patientrecords/internal/config"
	"github.com/patientrecords/patientrecords/internal/domain/dashboard"
	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/domain/report"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/sandbox"
	"github.com/patientrecords/patientrecords/internal/platform/task"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "patient-records",
		Short:         "Patient records API server and maintenance tool",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(infoCmd())
	rootCmd.AddCommand(clearCmd())
	return rootCmd
}

// app holds what every command needs: the config, the engine and the
// repositories built on it.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	eng      *db.Engine
	patients patient.Repository
	records  medicalrecord.Repository
	meds     medication.Repository
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// openApp loads the configuration and opens the database. autoMigrate
// overrides DB_AUTO_MIGRATE for commands that manage the schema themselves.
func openApp(ctx context.Context, autoMigrate *bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	log.Logger = logger

	migrate := cfg.DBAutoMigrate
	if autoMigrate != nil {
		migrate = *autoMigrate
	}
	driver, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	eng, err := db.Open(ctx, db.Options{
		Driver:       driver,
		Path:         cfg.DBPath,
		DatabaseURL:  cfg.DatabaseURL,
		MaxConns:     cfg.DBMaxConns,
		MinConns:     cfg.DBMinConns,
		AutoMigrate:  migrate,
		SeedDemoData: cfg.DBSeedDemo,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		eng:      eng,
		patients: patient.NewRepoSQL(eng),
		records:  medicalrecord.NewRepoSQL(eng),
		meds:     medication.NewRepoSQL(eng),
	}, nil
}

func (a *app) Close() {
	if err := a.eng.Close(); err != nil {
		a.logger.Error().Err(err).Msg("close database")
	}
}

func (a *app) dashboard() *dashboard.Service {
	return dashboard.NewService(a.eng, a.patients, a.records, a.meds)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	manual := false

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), &manual)
			if err != nil {
				return err
			}
			defer a.Close()

			count, _, err := a.eng.Migrate(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), &manual)
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.eng.Migrator()
			if err := m.EnsureMigrationsTable(cmd.Context()); err != nil {
				return err
			}
			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
			}
			return w.Flush()
		},
	})
	return cmd
}

func seedCmd() *cobra.Command {
	sc := sandbox.DefaultSeedConfig()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic patients, visits and medications",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			seeder := sandbox.NewSeeder(a.eng, a.patients, a.records, a.meds)
			res, err := seeder.Generate(cmd.Context(), sc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d patients, %d medical records and %d medications (seed %d).\n",
				res.Patients, res.MedicalRecords, res.Medications, res.Seed)
			return nil
		},
	}
	cmd.Flags().IntVar(&sc.PatientCount, "patients", sc.PatientCount, "Number of patients to generate")
	cmd.Flags().IntVar(&sc.VisitsPerPatient, "visits", sc.VisitsPerPatient, "Medical records per patient")
	cmd.Flags().IntVar(&sc.MedicationsPerPatient, "medications", sc.MedicationsPerPatient, "Medications per patient")
	cmd.Flags().Int64Var(&sc.Seed, "seed", 0, "Random seed (0 picks one from the clock)")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := a.dashboard()
			sum, err := svc.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			totals, err := svc.Totals(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), sum, totals)
			return nil
		},
	}
}

func printStats(out io.Writer, sum dashboard.Summary, totals dashboard.Totals) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Active patients\t%d\n", sum.Stats.Patients)
	fmt.Fprintf(w, "Medical records\t%d\n", sum.Stats.MedicalRecords)
	fmt.Fprintf(w, "Active medications\t%d\n", sum.Stats.Medications)
	fmt.Fprintf(w, "Upcoming follow-ups\t%d\n", totals.UpcomingFollowUps)
	fmt.Fprintf(w, "Male / Female / Other\t%d / %d / %d\n", sum.Genders.Male, sum.Genders.Female, sum.Genders.Other)
	fmt.Fprintf(w, "Registered this month\t%d\n", sum.Patients.AddedThisMonth)
	fmt.Fprintf(w, "Average age\t%d\n", sum.Patients.AverageAge)
	w.Flush()
}

func exportCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "export [patient-id]",
		Short: "Export patient reports as XLSX workbooks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass exactly one of a patient id or --all")
			}
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			exporter, err := report.NewXLSXExporter(a.cfg.ExportDir)
			if err != nil {
				return err
			}
			runner := task.NewRunner(a.cfg.TaskWorkers, a.logger)
			defer runner.Shutdown(context.Background())
			svc := report.NewService(a.patients, a.records, a.meds, exporter, runner)

			var artifacts []*report.Artifact
			if all {
				artifacts, err = svc.ExportAll(cmd.Context())
			} else {
				id, perr := strconv.ParseInt(args[0], 10, 64)
				if perr != nil || id <= 0 {
					return fmt.Errorf("invalid patient id %q", args[0])
				}
				var art *report.Artifact
				art, err = svc.ExportPatient(cmd.Context(), id)
				artifacts = append(artifacts, art)
			}
			if err != nil {
				return err
			}
			for _, art := range artifacts {
				fmt.Fprintln(cmd.OutOrStdout(), art.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Export every active patient")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print database information",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := a.dashboard().Info(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every patient, medical record and medication",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the database without --yes")
			}
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.dashboard().ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All data cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all data")
	return cmd
}
