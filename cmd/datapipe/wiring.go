package main

import (
	"context"
	"io"
	"os"

	"github.com/kbukum/datapipe/config"
	"github.com/kbukum/datapipe/database"
	apperrors "github.com/kbukum/datapipe/errors"
	"github.com/kbukum/datapipe/kafka"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/pipeline"
	"github.com/kbukum/datapipe/report"
	"github.com/kbukum/datapipe/resource"
	"github.com/kbukum/datapipe/result"
	"github.com/kbukum/datapipe/steps"
	"github.com/kbukum/datapipe/storage"
)

// newRegistry creates the operation registry over the opened stores.
func newRegistry(cfg *config.Config, stores *storage.Stores, readers kafka.ReaderFactory, log *logger.Logger) *steps.Registry {
	deps := steps.Dependencies{
		Catalog: resource.NewCatalog(cfg.Pipelines.Catalog),
		Stores:  stores,
		Kafka:   cfg.Kafka,
		Logger:  log,
	}
	if cfg.Kafka.Enabled {
		deps.Readers = readers
	}
	return steps.NewRegistry(deps)
}

// loadDefinition accepts a file path or a definition name searched in the
// configured directories.
func loadDefinition(cfg *config.Config, ref string) (*pipeline.Definition, error) {
	var (
		def *pipeline.Definition
		err error
	)
	if _, statErr := os.Stat(ref); statErr == nil {
		def, err = pipeline.LoadDefinition(ref)
	} else {
		def, err = pipeline.NewDefinitionLoader(cfg.Pipelines.Dirs...).Load(ref)
	}
	if err != nil {
		return nil, err
	}
	if def.OnError == pipeline.ActionPark && def.ParkingTarget == "" {
		def.ParkingTarget = cfg.Pipelines.ParkingTarget
	}
	return def, nil
}

// sinkSet collects the report sinks of a run. Sinks that need started
// components are added once those components are running.
type sinkSet struct {
	sinks  report.MultiSink
	closer io.Closer
}

func (s *sinkSet) add(sink report.Sink) { s.sinks = append(s.sinks, sink) }

func (s *sinkSet) close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// fileSinks adds the sinks that need no running component.
func fileSinks(cfg *config.Config, stdout io.Writer) (*sinkSet, error) {
	set := &sinkSet{}
	switch cfg.Report.File {
	case "":
	case "-":
		set.add(report.NewJSONSink(stdout, true))
	default:
		f, err := os.Create(cfg.Report.File)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "open report file").
				WithDetail("path", cfg.Report.File)
		}
		set.add(report.NewJSONSink(f, true))
		set.closer = f
	}
	return set, nil
}

// componentSinks adds the storage, database and Kafka sinks.
func componentSinks(set *sinkSet, cfg *config.Config, stores *storage.Stores,
	db *database.Component, publisher func(context.Context) (*kafka.Publisher, error)) error {
	if cfg.Report.Store != "" {
		st, ok := stores.Get(cfg.Report.Store)
		if !ok {
			return apperrors.NotFound("store", cfg.Report.Store)
		}
		sink, err := report.NewStorageSink(st, cfg.Report.Path)
		if err != nil {
			return err
		}
		set.add(sink)
	}
	if db != nil && db.DB() != nil {
		sink, err := report.NewDBSink(db.DB())
		if err != nil {
			return err
		}
		set.add(sink)
	}
	if cfg.Report.Topic != "" && publisher != nil {
		set.add(report.SinkFunc(func(ctx context.Context, rep *result.Report) error {
			pub, err := publisher(ctx)
			if err != nil {
				return err
			}
			return report.NewKafkaSink(pub).Write(ctx, rep)
		}))
	}
	return nil
}
