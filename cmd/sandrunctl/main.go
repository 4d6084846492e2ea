package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sandrun/sandrun"
	"github.com/sandrun/sandrun/internal/judgeconfig"
	"github.com/sandrun/sandrun/internal/logger"
	"github.com/sandrun/sandrun/internal/metrics"
)

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// buildLogger turns a judgeconfig.LogConfig into a slog.Logger writing
// through a lumberjack-rotated "engine.stdout.log" file when a directory is
// configured, falling back to slog.Default() otherwise. The rotated writer
// only ever carries the engine's own structured log lines, never a child's
// inherited stdio, since a pipe.WritePipe must back a real file descriptor.
func buildLogger(cfg *judgeconfig.LogConfig) *slog.Logger {
	if cfg == nil || cfg.Dir == "" {
		return slog.Default()
	}
	lc := logger.Config{
		Dir:        cfg.Dir,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	w, _, err := lc.Writers("engine")
	if err != nil || w == nil {
		return slog.Default()
	}
	handler := logger.NewColorTextHandler(w, nil, true)
	return slog.New(handler)
}

func buildProgram(job judgeconfig.JobConfig, globalEnv []string, log *slog.Logger) (*sandrun.SpawnedProgram, error) {
	limits, err := job.Limits.ToResourceLimits()
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.Name, err)
	}
	interval, err := job.ParsedMonitorInterval()
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.Name, err)
	}

	env := append(append([]string{}, globalEnv...), job.Env...)

	prog := sandrun.NewSpawnedProgram(sandrun.ProcessInfo{
		Path:    job.Command,
		Args:    job.Args,
		WorkDir: job.WorkDir,
		Env:     env,
	}).
		WithResourceLimits(limits).
		WithWaitForChildren(job.WaitForChildren).
		WithLogger(log).
		WithOnTerminate(func() {
			log.Info("job terminated", "job", job.Name)
		})

	if interval > 0 {
		prog = prog.WithMonitorInterval(interval)
	}

	return prog, nil
}

func runCmd() *cobra.Command {
	var configPath string
	var metricsListen string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every job in the judge config under the supervisor engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := judgeconfig.Load(configPath)
			if err != nil {
				return err
			}

			if cfg.Metrics != nil && cfg.Metrics.Enabled {
				if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
					return fmt.Errorf("register metrics: %w", err)
				}
				listen := cfg.Metrics.Listen
				if metricsListen != "" {
					listen = metricsListen
				}
				if listen != "" {
					go func() {
						mux := http.NewServeMux()
						mux.Handle("/metrics", metrics.Handler())
						if err := http.ListenAndServe(listen, mux); err != nil {
							slog.Error("metrics server stopped", "error", err)
						}
					}()
				}
			}

			metricsOn := cfg.Metrics != nil && cfg.Metrics.Enabled
			log := buildLogger(cfg.Log)

			programs := make([]*sandrun.SpawnedProgram, 0, len(cfg.Jobs))
			for _, job := range cfg.Jobs {
				p, err := buildProgram(job, cfg.GlobalEnv, log)
				if err != nil {
					return err
				}
				programs = append(programs, p)
				if metricsOn {
					metrics.IncMonitorStart(job.Name)
				}
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			s := sandrun.Spawn(ctx, programs)
			results := s.Wait()

			reports := make([]sandrun.Report, len(results))
			for i, r := range results {
				if r.Err != nil {
					log.Error("job failed", "job", cfg.Jobs[i].Name, "error", r.Err)
					continue
				}
				reports[i] = r.Report
				if metricsOn {
					var peak uint64
					if r.Report.Memory != nil {
						peak = r.Report.Memory.Peak
					}
					metrics.RecordTermination(cfg.Jobs[i].Name, string(r.Report.TerminationReason), r.Report.WallClockTime.Seconds(), peak)
				}
			}
			printJSON(reports)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sandrun.yaml", "path to the judge config document")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "override the config's metrics listen address")
	return cmd
}

func main() {
	root := &cobra.Command{Use: "sandrunctl", Short: "CLI front-end for the sandboxed process supervisor engine"}
	root.AddCommand(runCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sandrunctl (dev)")
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
