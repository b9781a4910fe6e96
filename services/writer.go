package services

import (
	"context"
	"errors"
	"time"

	"support_directory_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WriteResult is the outcome of one step of a write sequence
type WriteResult struct {
	Step         string
	ID           string
	RowsAffected int64
}

// WriteResults holds the results of the steps executed so far, in order
type WriteResults []WriteResult

// ID returns the inserted id of a prior step, or "" if the step is unknown
func (r WriteResults) ID(step string) string {
	for _, res := range r {
		if res.Step == step {
			return res.ID
		}
	}
	return ""
}

// Get returns the result of a prior step
func (r WriteResults) Get(step string) (WriteResult, bool) {
	for _, res := range r {
		if res.Step == step {
			return res, true
		}
	}
	return WriteResult{}, false
}

// WriteStep is one statement of an atomic write sequence. Run receives the
// transaction and the results of all earlier steps.
type WriteStep struct {
	Name string
	Run  func(tx *gorm.DB, prior WriteResults) (WriteResult, error)
}

// Insert creates the record built from prior results. Associations are not
// saved; dependent rows are inserted by their own steps.
func Insert(name string, build func(prior WriteResults) (models.Record, error)) WriteStep {
	return WriteStep{
		Name: name,
		Run: func(tx *gorm.DB, prior WriteResults) (WriteResult, error) {
			record, err := build(prior)
			if err != nil {
				return WriteResult{}, err
			}
			res := tx.Omit(clause.Associations).Create(record)
			if res.Error != nil {
				return WriteResult{}, res.Error
			}
			return WriteResult{ID: record.GetID(), RowsAffected: res.RowsAffected}, nil
		},
	}
}

// Exec runs an update or delete and records the affected row count
func Exec(name string, fn func(tx *gorm.DB, prior WriteResults) (int64, error)) WriteStep {
	return WriteStep{
		Name: name,
		Run: func(tx *gorm.DB, prior WriteResults) (WriteResult, error) {
			rows, err := fn(tx, prior)
			if err != nil {
				return WriteResult{}, err
			}
			return WriteResult{RowsAffected: rows}, nil
		},
	}
}

// TransactionalWriter executes write sequences atomically on one connection
type TransactionalWriter struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *EngineMetrics
}

func NewTransactionalWriter(db *gorm.DB, logger *zap.Logger, metrics *EngineMetrics) *TransactionalWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionalWriter{db: db, logger: logger, metrics: metrics}
}

// Execute runs steps serially inside one transaction. Any failure rolls back
// every step. Engine errors from a step are returned unchanged; other
// failures are wrapped as store errors. Writes are never retried.
func (w *TransactionalWriter) Execute(ctx context.Context, steps ...WriteStep) (WriteResults, error) {
	if len(steps) == 0 {
		return WriteResults{}, nil
	}

	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.Name == "" || step.Run == nil {
			return nil, NewValidationError("write step must have a name and a body")
		}
		if seen[step.Name] {
			return nil, NewValidationError("duplicate write step %q", step.Name)
		}
		seen[step.Name] = true
	}

	op := steps[0].Name
	start := time.Now()
	var results WriteResults
	var failed string

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, step := range steps {
			res, err := step.Run(tx, results)
			if err != nil {
				failed = step.Name
				return err
			}
			res.Step = step.Name
			results = append(results, res)
		}
		return nil
	})

	if err != nil {
		w.metrics.observeWrite(op, "rolled_back", time.Since(start))
		w.logger.Warn("Write sequence rolled back",
			zap.String("op", op),
			zap.String("failed_step", failed),
			zap.Int("steps", len(steps)),
			zap.Error(err))

		var ee *EngineError
		if errors.As(err, &ee) {
			return nil, err
		}
		if failed == "" {
			failed = op
		}
		return nil, NewStoreError("write "+failed, err)
	}

	w.metrics.observeWrite(op, "committed", time.Since(start))
	return results, nil
}
