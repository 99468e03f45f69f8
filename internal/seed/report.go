package seed

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// Entity kinds handled by the loader.
const (
	KindStations = "stations"
	KindTrains   = "trains"
)

// Run status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// KindReport counts what happened to one entity kind during a run.
type KindReport struct {
	Kind       string `json:"kind"`
	Shape      string `json:"shape,omitempty"`
	Seen       int    `json:"seen"`       // records produced by the normalizer or table
	Rejected   int    `json:"rejected"`   // records without a natural key
	Duplicates int    `json:"duplicates"` // repeats of a key already in the batch
	Submitted  int    `json:"submitted"`  // rows sent to the database
	Inserted   int64  `json:"inserted"`   // rows the database actually added
}

// MarshalLogObject lets a KindReport be logged as a structured field.
func (k KindReport) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", k.Kind)
	if k.Shape != "" {
		enc.AddString("shape", k.Shape)
	}
	enc.AddInt("seen", k.Seen)
	enc.AddInt("rejected", k.Rejected)
	enc.AddInt("duplicates", k.Duplicates)
	enc.AddInt("submitted", k.Submitted)
	enc.AddInt64("inserted", k.Inserted)
	return nil
}

// Report is the outcome of one loader run.
type Report struct {
	RunID      string        `json:"runId"`
	Status     string        `json:"status"`
	Stations   KindReport    `json:"stations"`
	Trains     KindReport    `json:"trains"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	RolledBack bool          `json:"rolledBack,omitempty"`
}

// NewReport starts a report for a fresh run.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Stations:  KindReport{Kind: KindStations},
		Trains:    KindReport{Kind: KindTrains},
	}
}

// Fail marks the run as failed with err.
func (r *Report) Fail(err error) {
	r.Status = StatusError
	if err != nil {
		r.Error = err.Error()
	}
	if r.Duration == 0 {
		r.Duration = time.Since(r.StartedAt)
	}
}
