package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/datapipe/bootstrap"
	"github.com/kbukum/datapipe/component"
	"github.com/kbukum/datapipe/config"
	"github.com/kbukum/datapipe/database"
	"github.com/kbukum/datapipe/kafka"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/observability"
	"github.com/kbukum/datapipe/pipeline"
	"github.com/kbukum/datapipe/runner"
	"github.com/kbukum/datapipe/step"
	"github.com/kbukum/datapipe/storage"
	"github.com/kbukum/datapipe/version"
)

type runFlags struct {
	reportFile string
	reportDB   string
}

func newRunCmd(global *globalFlags) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run FILE|NAME",
		Short: "Execute a pipeline definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if flags.reportFile != "" {
				cfg.Report.File = flags.reportFile
			}
			if flags.reportDB != "" {
				cfg.Report.Database.DSN = flags.reportDB
			}
			return run(cmd.Context(), cmd, cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&flags.reportFile, "report", "", `write the JSON report to FILE ("-" for stdout)`)
	cmd.Flags().StringVar(&flags.reportDB, "report-db", "", "store reports in the sqlite database at DSN")
	return cmd
}

// run starts the configured components and executes the pipeline once.
// Stream pipelines run under a runner until interrupted or finished.
func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, ref string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	log := app.Logger

	storageComp := storage.NewComponent(cfg.Storage, log)
	obsComp := observability.NewComponent(cfg.Observability, log)
	comps := []component.Component{storageComp, obsComp}

	var (
		kafkaComp *kafka.Component
		publisher *component.Lazy[*kafka.Publisher]
		dbComp    *database.Component
	)
	if cfg.Kafka.Enabled {
		kafkaComp = kafka.NewComponent(cfg.Kafka, log)
		comps = append(comps, kafkaComp)
		if cfg.Report.Topic != "" {
			publisher = component.NewLazy("report-publisher", func(context.Context) (*kafka.Publisher, error) {
				w, err := kafka.NewWriter(cfg.Kafka, cfg.Report.Topic, log)
				if err != nil {
					return nil, err
				}
				pub := kafka.NewPublisher(w, cfg.Report.Topic, cfg.Kafka.Retries, log)
				kafkaComp.SetPublisher(pub)
				return pub, nil
			}, log)
			comps = append(comps, publisher)
		}
	}
	if cfg.Report.Database.Enabled {
		dbComp = database.NewComponent(cfg.Report.Database, log)
		comps = append(comps, dbComp)
	}
	for _, c := range comps {
		if err := app.RegisterComponent(c); err != nil {
			return err
		}
	}

	sinks, err := fileSinks(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sinks.close(); cerr != nil {
			log.Warn("closing report file failed", logger.MergeWithError(nil, cerr))
		}
	}()

	return app.RunTask(ctx, func(ctx context.Context) error {
		stores := storageComp.Stores()
		var readers kafka.ReaderFactory
		if kafkaComp != nil {
			readers = kafkaComp.Readers()
		}
		var publish func(context.Context) (*kafka.Publisher, error)
		if publisher != nil {
			publish = publisher.Get
		}
		if err := componentSinks(sinks, cfg, stores, dbComp, publish); err != nil {
			return err
		}

		def, err := loadDefinition(cfg, ref)
		if err != nil {
			return err
		}
		p, err := def.Build(newRegistry(cfg, stores, readers, log),
			pipeline.WithLogger(log),
			pipeline.WithMetrics(obsComp.Metrics()),
			pipeline.WithTracer(obsComp.Tracer()),
		)
		if err != nil {
			return err
		}

		if p.Mode() == step.Stream {
			return runStream(ctx, p, sinks, log)
		}
		res, execErr := p.Execute(ctx)
		if res != nil {
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runner.DefaultReportTimeout)
			defer cancel()
			if werr := sinks.sinks.Write(wctx, res.Report()); werr != nil {
				log.Error("report write failed", logger.MergeWithError(nil, werr))
				if execErr == nil {
					execErr = werr
				}
			}
		}
		return execErr
	})
}

// runStream hosts p under a runner until ctx is canceled or the execution
// ends by itself.
func runStream(ctx context.Context, p *pipeline.Pipeline, sinks *sinkSet, log *logger.Logger) error {
	r := runner.New(p, log, runner.WithSink(sinks.sinks))
	if err := r.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-r.Done():
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), p.Config().ShutdownGrace+runner.DefaultReportTimeout+time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		return err
	}
	return r.Err()
}
