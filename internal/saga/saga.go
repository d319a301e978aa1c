package saga

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	obsmetrics "github.com/smallbiznis/gglounge/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDependentWriteFailed = errors.New("dependent_write_failed")
	ErrUnknownHandler       = errors.New("unknown_saga_handler")
	ErrInvalidSagaKey       = errors.New("invalid_saga_key")
	ErrInvalidPayload       = errors.New("invalid_saga_payload")
)

// Handler applies one step inside tx. The applied marker commits with it.
type Handler func(ctx context.Context, tx *gorm.DB, payload datatypes.JSONMap) error

// Step is one secondary write of a saga. Name is unique within the saga.
type Step struct {
	Name    string
	Handler string
	Payload map[string]any
}

// Failure is a step that did not apply. It wraps ErrDependentWriteFailed.
type Failure struct {
	SagaKey string
	Step    string
	Err     error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s/%s: %v", ErrDependentWriteFailed, f.SagaKey, f.Step, f.Err)
}

func (f Failure) Unwrap() []error { return []error{ErrDependentWriteFailed, f.Err} }

type Result struct {
	Applied []string
	Skipped []string
	Failed  []Failure
}

// Warnings renders failures for callers that report them without failing.
func (r Result) Warnings() []string {
	if len(r.Failed) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Error())
	}
	return out
}

func (r *Result) merge(other Result) {
	r.Applied = append(r.Applied, other.Applied...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.Failed = append(r.Failed, other.Failed...)
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Runner records saga steps and applies each at most once.
type Runner struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	obsMetrics *obsmetrics.Metrics

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRunner(p Params) *Runner {
	return &Runner{
		db:         p.DB,
		log:        p.Log.Named("saga.runner"),
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
		handlers:   make(map[string]Handler),
	}
}

func (r *Runner) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

func (r *Runner) handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Record persists steps as pending inside tx. Steps already recorded are left untouched.
func (r *Runner) Record(ctx context.Context, tx *gorm.DB, sagaKey string, steps []Step) error {
	sagaKey = strings.TrimSpace(sagaKey)
	if sagaKey == "" {
		return ErrInvalidSagaKey
	}
	if len(steps) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]StepRecord, 0, len(steps))
	for i, step := range steps {
		if _, ok := r.handler(step.Handler); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownHandler, step.Handler)
		}
		payload := datatypes.JSONMap{}
		for k, v := range step.Payload {
			payload[k] = v
		}
		records = append(records, StepRecord{
			ID:        r.genID.Generate(),
			SagaKey:   sagaKey,
			Step:      step.Name,
			Handler:   step.Handler,
			Sequence:  i,
			Status:    StepStatusPending,
			Payload:   payload,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "saga_key"}, {Name: "step"}},
		DoNothing: true,
	}).Create(&records).Error
}

// Run records and executes steps outside any caller transaction.
func (r *Runner) Run(ctx context.Context, sagaKey string, steps []Step) (Result, error) {
	if err := r.Record(ctx, r.db, sagaKey, steps); err != nil {
		return Result{}, err
	}
	return r.Execute(ctx, sagaKey)
}

// Execute applies every step of sagaKey that has not been applied yet.
// A failed step does not stop the remaining ones.
func (r *Runner) Execute(ctx context.Context, sagaKey string) (Result, error) {
	var records []StepRecord
	if err := r.db.WithContext(ctx).
		Where("saga_key = ?", sagaKey).
		Order("sequence asc").
		Find(&records).Error; err != nil {
		return Result{}, err
	}
	return r.apply(ctx, records), nil
}

// Resume re-executes unapplied steps of every saga whose key starts with prefix.
func (r *Runner) Resume(ctx context.Context, prefix string) (Result, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Result{}, ErrInvalidSagaKey
	}

	var records []StepRecord
	if err := r.db.WithContext(ctx).
		Where("saga_key LIKE ? ESCAPE '\\' AND status <> ?", escapeLike(prefix)+"%", StepStatusApplied).
		Order("created_at asc, sequence asc").
		Find(&records).Error; err != nil {
		return Result{}, err
	}
	return r.applyGrouped(ctx, records), nil
}

// Sweep applies up to limit unapplied steps under prefix that were last touched before cutoff.
// Newer steps are left to the call that recorded them.
func (r *Runner) Sweep(ctx context.Context, prefix string, cutoff time.Time, limit int) (Result, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Result{}, ErrInvalidSagaKey
	}

	stmt := r.db.WithContext(ctx).
		Where("saga_key LIKE ? ESCAPE '\\' AND status <> ? AND updated_at < ?", escapeLike(prefix)+"%", StepStatusApplied, cutoff).
		Order("created_at asc, sequence asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var records []StepRecord
	if err := stmt.Find(&records).Error; err != nil {
		return Result{}, err
	}
	return r.applyGrouped(ctx, records), nil
}

func (r *Runner) applyGrouped(ctx context.Context, records []StepRecord) Result {
	grouped := map[string][]StepRecord{}
	keys := make([]string, 0)
	for _, rec := range records {
		if _, ok := grouped[rec.SagaKey]; !ok {
			keys = append(keys, rec.SagaKey)
		}
		grouped[rec.SagaKey] = append(grouped[rec.SagaKey], rec)
	}
	sort.Strings(keys)

	var result Result
	for _, key := range keys {
		result.merge(r.apply(ctx, grouped[key]))
	}
	return result
}

// Pending lists unapplied steps under prefix.
func (r *Runner) Pending(ctx context.Context, prefix string) ([]StepRecord, error) {
	var records []StepRecord
	err := r.db.WithContext(ctx).
		Where("saga_key LIKE ? ESCAPE '\\' AND status <> ?", escapeLike(prefix)+"%", StepStatusApplied).
		Order("saga_key asc, sequence asc").
		Find(&records).Error
	return records, err
}

func (r *Runner) apply(ctx context.Context, records []StepRecord) Result {
	var result Result
	for _, rec := range records {
		if rec.Status == StepStatusApplied {
			result.Skipped = append(result.Skipped, rec.Step)
			continue
		}

		err := r.applyOne(ctx, rec)
		if err == nil {
			result.Applied = append(result.Applied, rec.Step)
			continue
		}

		failure := Failure{SagaKey: rec.SagaKey, Step: rec.Step, Err: err}
		result.Failed = append(result.Failed, failure)
		r.log.Warn("dependent write failed",
			zap.String("saga_key", rec.SagaKey),
			zap.String("step", rec.Step),
			zap.Int("attempts", rec.Attempts+1),
			zap.Error(err),
		)
		if r.obsMetrics != nil {
			r.obsMetrics.RecordDependentWriteFailure(ctx, rec.Handler)
		}
		if markErr := r.markFailed(ctx, rec, err); markErr != nil {
			r.log.Error("failed to record saga step failure",
				zap.String("saga_key", rec.SagaKey),
				zap.String("step", rec.Step),
				zap.Error(markErr),
			)
		}
	}
	return result
}

func (r *Runner) applyOne(ctx context.Context, rec StepRecord) error {
	handler, ok := r.handler(rec.Handler)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandler, rec.Handler)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := handler(ctx, tx, rec.Payload); err != nil {
			return err
		}
		now := time.Now().UTC()
		res := tx.Model(&StepRecord{}).
			Where("id = ? AND status <> ?", rec.ID, StepStatusApplied).
			Updates(map[string]any{
				"status":     StepStatusApplied,
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": "",
				"applied_at": now,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("saga step %s/%s applied concurrently", rec.SagaKey, rec.Step)
		}
		return nil
	})
}

func (r *Runner) markFailed(ctx context.Context, rec StepRecord, cause error) error {
	return r.db.WithContext(ctx).Model(&StepRecord{}).
		Where("id = ? AND status <> ?", rec.ID, StepStatusApplied).
		Updates(map[string]any{
			"status":     StepStatusFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
			"updated_at": time.Now().UTC(),
		}).Error
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// PayloadID reads a snowflake ID stored as a string.
func PayloadID(payload datatypes.JSONMap, key string) (snowflake.ID, error) {
	raw, ok := payload[key].(string)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPayload, key)
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPayload, key)
	}
	return id, nil
}

// PayloadInt reads an integer stored as a string.
func PayloadInt(payload datatypes.JSONMap, key string) (int64, error) {
	raw, ok := payload[key].(string)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPayload, key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPayload, key)
	}
	return v, nil
}

// PayloadDecimal reads an amount stored as a string.
func PayloadDecimal(payload datatypes.JSONMap, key string) (decimal.Decimal, error) {
	raw, ok := payload[key].(string)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidPayload, key)
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidPayload, key)
	}
	return v, nil
}
