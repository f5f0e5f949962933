// Package storage persists simulation runs: the network description, the
// recorded trace and the final network state, which is enough to resume.
package storage

import (
	"context"
	"time"

	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/network"
)

type RunMetadata struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Parent       string             `json:"parent,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
	CodecVersion int                `json:"codec_version"`
	Seed         int64              `json:"seed"`
	MinDelay     float64            `json:"min_delay"`
	Duration     float64            `json:"duration"`
	SimTime      float64            `json:"sim_time"`
	Flat         bool               `json:"flat"`
	Units        int                `json:"units"`
	Plants       int                `json:"plants"`
	Connections  int                `json:"connections"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Run is one stored simulation. Final is the network state at the end of
// the trace.
type Run struct {
	Meta   RunMetadata
	Config *config.Config
	Trace  *network.Trace
	Final  *network.State
}

type Store interface {
	Init(ctx context.Context) error

	// SaveRun stores run, assigning it a new ID when Meta.ID is empty, and
	// returns the ID.
	SaveRun(ctx context.Context, run *Run) (string, error)
	GetRun(ctx context.Context, id string) (*Run, bool, error)

	// ListRuns returns metadata only, oldest first.
	ListRuns(ctx context.Context) ([]RunMetadata, error)
	Close() error
}

// NewRun fills the metadata of a finished run from its config, trace and
// final state.
func NewRun(cfg *config.Config, tr *network.Trace, final *network.State) *Run {
	conns := 0
	for _, in := range final.Inputs {
		conns += len(in)
	}
	return &Run{
		Meta: RunMetadata{
			Name:        cfg.Name,
			Seed:        cfg.Network.Seed,
			MinDelay:    cfg.Network.MinDelay,
			Duration:    float64(len(tr.Times)) * cfg.Network.MinDelay,
			SimTime:     final.SimTime,
			Flat:        final.Flat,
			Units:       len(final.UnitTypes),
			Plants:      len(final.PlantTypes),
			Connections: conns,
		},
		Config: cfg,
		Trace:  tr,
		Final:  final,
	}
}
