package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexeval/lexeval/internal/config"
	"github.com/lexeval/lexeval/internal/dataset"
	"github.com/lexeval/lexeval/internal/evaluation"
	"github.com/lexeval/lexeval/internal/pkg/logger"
	"github.com/lexeval/lexeval/internal/report"
	"github.com/lexeval/lexeval/internal/runstore"
	"github.com/lexeval/lexeval/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lexeval",
		Short: "LexEval - evaluation engine for legal-tax retrieval and reasoning",
		Long: `LexEval scores model predictions against gold-annotated legal-tax
scenarios: retrieval ranking, span and value extraction, and reasoning
calibration, aggregated into a versioned report.

Run 'lexeval evaluate' to score a prediction set from the command line.
Run 'lexeval serve' to start the evaluation server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")

	rootCmd.AddCommand(
		evaluateCmd(),
		serveCmd(),
		runsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a prediction set against a gold set",
		Long: `Load a gold scenario set and a prediction set (JSON, JSONL, or
YAML), score every scenario, and print the aggregated report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			goldPath, _ := cmd.Flags().GetString("gold")
			predPath, _ := cmd.Flags().GetString("predictions")
			output, _ := cmd.Flags().GetString("output")
			save, _ := cmd.Flags().GetBool("save")
			label, _ := cmd.Flags().GetString("label")

			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			gold, err := dataset.LoadGold(goldPath)
			if err != nil {
				return fmt.Errorf("loading gold set: %w", err)
			}
			preds, err := dataset.LoadPredictions(predPath)
			if err != nil {
				return fmt.Errorf("loading predictions: %w", err)
			}

			evaluator := evaluation.NewEvaluator(cfg.Scoring, nil, log)
			rep, err := evaluator.Evaluate(cmd.Context(), gold, preds)
			if err != nil {
				return err
			}

			if save {
				if err := saveRun(cmd.Context(), cfg, rep, label); err != nil {
					return fmt.Errorf("saving run: %w", err)
				}
			}

			switch output {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			default:
				fmt.Print(rep.Format())
				return nil
			}
		},
	}

	cmd.Flags().StringP("gold", "g", "", "gold set file (required)")
	cmd.Flags().StringP("predictions", "p", "", "prediction set file (required)")
	cmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	cmd.Flags().Bool("save", false, "persist the run to the configured store")
	cmd.Flags().String("label", "", "label for the persisted run")
	cmd.MarkFlagRequired("gold")
	cmd.MarkFlagRequired("predictions")

	return cmd
}

func saveRun(ctx context.Context, cfg *config.Config, rep *report.Report, label string) error {
	runs, err := openRunService(cfg)
	if err != nil {
		return err
	}
	defer runs.Close()

	if err := runs.SaveRun(ctx, runstore.NewRun(rep, label)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved run %s\n", rep.RunID)
	return nil
}

func openRunService(cfg *config.Config) (*runstore.Service, error) {
	storage, err := runstore.NewStorage(cfg.Store)
	if err != nil {
		return nil, err
	}
	return runstore.NewService(storage, nil)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the evaluation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("host") {
				cfg.Host, _ = cmd.Flags().GetString("host")
			}

			srvCfg := server.DefaultConfig()
			srvCfg.Host = cfg.Host
			srvCfg.Port = cfg.Port
			srvCfg.Version = version

			srv, err := server.New(srvCfg, *cfg, log)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP server host")

	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage stored evaluation runs",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored runs, newest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				runs, err := openRunService(cfg)
				if err != nil {
					return err
				}
				defer runs.Close()

				all, err := runs.ListRuns(cmd.Context())
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RUN\tLABEL\tCREATED\tSCENARIOS\tMALFORMED")
				for _, run := range all {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
						run.ID, run.Label, run.CreatedAt.Format(time.RFC3339),
						run.Report.Inputs.Scenarios, run.Report.Malformed)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "show <run-id>",
			Short: "Print a stored run's report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				runs, err := openRunService(cfg)
				if err != nil {
					return err
				}
				defer runs.Close()

				run, err := runs.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Print(run.Report.Format())
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <run-id>",
			Short: "Delete a stored run",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, _, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				runs, err := openRunService(cfg)
				if err != nil {
					return err
				}
				defer runs.Close()

				return runs.DeleteRun(cmd.Context(), args[0])
			},
		},
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lexeval %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
			fmt.Printf("  report: %s\n", report.Version)
		},
	}
}
