package report

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/datapipe/database"
	"github.com/kbukum/datapipe/database/migration"
	"github.com/kbukum/datapipe/logger"
	"github.com/kbukum/datapipe/result"
)

// PipelineRun is one stored execution report.
type PipelineRun struct {
	database.BaseModel
	ExecutionID       string `gorm:"size:64;uniqueIndex"`
	Pipeline          string `gorm:"size:255"`
	Run               int
	Mode              string `gorm:"size:16"`
	Status            string `gorm:"size:32"`
	Error             string
	StartedAt         time.Time
	FinishedAt        time.Time
	TotalMS           int64
	ExecutionMS       int64
	PollWaitMS        int64
	PushWaitMS        int64
	LastParkingTarget string
	Steps             []StepRun `gorm:"foreignKey:PipelineRunID;constraint:OnDelete:CASCADE"`
}

// StepRun holds the counters of one step within a PipelineRun.
type StepRun struct {
	database.BaseModel
	PipelineRunID  string `gorm:"size:36;index"`
	StepID         int
	Name           string `gorm:"size:255"`
	Operation      string `gorm:"size:64"`
	Kind           string `gorm:"size:16"`
	ProcessingType string `gorm:"size:16"`
	RecordsIn      uint64
	RecordsOut     uint64
	Executions     uint64
	Errors         uint64
	Parkings       uint64
}

// migrations are applied after auto-migration of the models.
var migrations = []migration.Migration{
	{
		ID:          "001_pipeline_runs_by_pipeline",
		Description: "index runs by pipeline and start time",
		Up: func(tx *gorm.DB) error {
			return migration.CreateIndexIfNotExists(tx, "pipeline_runs", "idx_pipeline_runs_pipeline_started", "pipeline, started_at")
		},
		Down: func(tx *gorm.DB) error {
			return migration.DropIndexIfExists(tx, "idx_pipeline_runs_pipeline_started")
		},
	},
}

// DBSink stores reports in a SQL database.
type DBSink struct {
	db  *database.DB
	log *logger.Logger
}

// NewDBSink migrates the report tables and returns a sink writing to db.
func NewDBSink(db *database.DB) (*DBSink, error) {
	if err := db.AutoMigrate(&PipelineRun{}, &StepRun{}); err != nil {
		return nil, err
	}
	if _, err := migration.NewRunner(db.GormDB, db.Logger()).Add(migrations...).Run(); err != nil {
		return nil, err
	}
	return &DBSink{db: db, log: db.Logger().WithComponent("report.db")}, nil
}

// Write stores rep with its step rows in one transaction.
func (s *DBSink) Write(ctx context.Context, rep *result.Report) error {
	return traced(ctx, "db", rep, func(ctx context.Context) error {
		run := toRun(rep)
		err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
			return tx.Create(run).Error
		})
		if err != nil {
			return database.FromDatabase(err, "pipeline_run")
		}
		s.log.Debug("report stored", logger.Fields("execution_id", rep.ExecutionID, logger.FieldCount, len(run.Steps)))
		return nil
	})
}

// Runs returns the stored runs of pipeline, newest first, with their steps.
func (s *DBSink) Runs(ctx context.Context, pipeline string, limit int) ([]PipelineRun, error) {
	var runs []PipelineRun
	q := s.db.WithContext(ctx).Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_id")
	}).Where("pipeline = ?", pipeline).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, database.FromDatabase(err, "pipeline_run")
	}
	return runs, nil
}

func toRun(rep *result.Report) *PipelineRun {
	run := &PipelineRun{
		ExecutionID:       rep.ExecutionID,
		Pipeline:          rep.Pipeline,
		Run:               rep.Run,
		Mode:              rep.Mode,
		Status:            rep.Status,
		Error:             rep.Error,
		StartedAt:         rep.StartedAt,
		FinishedAt:        rep.FinishedAt,
		TotalMS:           rep.TotalMS,
		ExecutionMS:       rep.ExecutionMS,
		PollWaitMS:        rep.PollWaitMS,
		PushWaitMS:        rep.PushWaitMS,
		LastParkingTarget: rep.LastParkingTarget,
	}
	for _, st := range rep.Steps {
		run.Steps = append(run.Steps, StepRun{
			StepID:         st.ID,
			Name:           st.Name,
			Operation:      st.Operation,
			Kind:           st.Kind,
			ProcessingType: st.ProcessingType,
			RecordsIn:      st.RecordsIn,
			RecordsOut:     st.RecordsOut,
			Executions:     st.Executions,
			Errors:         st.Errors,
			Parkings:       st.Parkings,
		})
	}
	return run
}
