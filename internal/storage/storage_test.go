package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/experiment"
	"github.com/san-kum/delaynet/internal/network"
)

func simulate(t *testing.T, preset string, duration float64) *Run {
	t.Helper()
	cfg := config.GetPreset(preset)
	e, err := experiment.New(cfg, network.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("build %s: %v", preset, err)
	}
	tr, err := e.RunFor(context.Background(), duration, nil)
	if err != nil {
		t.Fatalf("run %s: %v", preset, err)
	}
	run := NewRun(cfg, tr, e.Network().SaveState())
	run.Meta.Metrics = map[string]float64{"mean": 0.25}
	return run
}

func sameTrace(a, b *network.Trace) bool {
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return bytes.Equal(ja, jb)
}

func TestStoreBackends(t *testing.T) {
	ctx := context.Background()
	for _, kind := range []string{"file", "sqlite"} {
		path := filepath.Join(t.TempDir(), "runs")
		if kind == "sqlite" {
			path += ".db"
		}
		st, err := NewStore(kind, path)
		if err != nil {
			t.Fatalf("%s: NewStore: %v", kind, err)
		}
		if err := st.Init(ctx); err != nil {
			t.Fatalf("%s: Init: %v", kind, err)
		}
		t.Cleanup(func() { _ = st.Close() })

		run := simulate(t, "pendulum_loop", 0.5)
		id, err := st.SaveRun(ctx, run)
		if err != nil {
			t.Fatalf("%s: SaveRun: %v", kind, err)
		}
		if id == "" || id != run.Meta.ID {
			t.Fatalf("%s: unexpected id %q", kind, id)
		}

		got, ok, err := st.GetRun(ctx, id)
		if err != nil || !ok {
			t.Fatalf("%s: GetRun: %v %v", kind, ok, err)
		}
		if got.Meta.Name != "pendulum_loop" || got.Meta.Units != 2 || got.Meta.Plants != 1 {
			t.Errorf("%s: unexpected metadata %+v", kind, got.Meta)
		}
		if !got.Meta.Timestamp.Equal(run.Meta.Timestamp) {
			t.Errorf("%s: timestamp %v, want %v", kind, got.Meta.Timestamp, run.Meta.Timestamp)
		}
		if got.Meta.Metrics["mean"] != 0.25 {
			t.Errorf("%s: metrics lost: %v", kind, got.Meta.Metrics)
		}
		if !sameTrace(got.Trace, run.Trace) {
			t.Errorf("%s: trace changed in storage", kind)
		}
		if got.Final == nil || got.Final.SimTime != run.Final.SimTime {
			t.Errorf("%s: final state lost", kind)
		}
		if got.Config == nil || len(got.Config.PlantOutputs) != 1 {
			t.Fatalf("%s: config lost", kind)
		}

		// The stored config and state are enough to resume.
		e, err := experiment.New(got.Config, network.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		if err != nil {
			t.Fatalf("%s: rebuild: %v", kind, err)
		}
		if err := e.Restore(got.Final); err != nil {
			t.Errorf("%s: restore: %v", kind, err)
		}

		second := simulate(t, "relay", 0.2)
		second.Meta.Parent = id
		if _, err := st.SaveRun(ctx, second); err != nil {
			t.Fatalf("%s: SaveRun: %v", kind, err)
		}
		runs, err := st.ListRuns(ctx)
		if err != nil {
			t.Fatalf("%s: ListRuns: %v", kind, err)
		}
		if len(runs) != 2 || runs[0].ID != id || runs[1].Parent != id {
			t.Errorf("%s: unexpected listing %+v", kind, runs)
		}

		if _, ok, err := st.GetRun(ctx, "missing"); ok || err != nil {
			t.Errorf("%s: expected a clean miss, got %v %v", kind, ok, err)
		}
	}
}

func TestListEmptyFileStore(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "nothing"))
	runs, err := st.ListRuns(context.Background())
	if err != nil || len(runs) != 0 {
		t.Errorf("expected no runs, got %v %v", runs, err)
	}
}

func TestSQLiteNeedsInit(t *testing.T) {
	st := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if _, err := st.ListRuns(context.Background()); err == nil {
		t.Error("expected an error before Init")
	}
	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Error("expected an error for an empty path")
	}
}

func TestNewStoreUnknown(t *testing.T) {
	if _, err := NewStore("postgres", "x"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestTraceCSVRoundTrip(t *testing.T) {
	run := simulate(t, "pendulum_loop", 0.3)

	var buf bytes.Buffer
	if err := WriteTraceCSV(&buf, run.Trace); err != nil {
		t.Fatalf("WriteTraceCSV: %v", err)
	}
	got, err := ReadTraceCSV(&buf)
	if err != nil {
		t.Fatalf("ReadTraceCSV: %v", err)
	}
	if !sameTrace(got, run.Trace) {
		t.Error("csv round trip is not exact")
	}

	if _, err := ReadTraceCSV(bytes.NewBufferString("t,x\n1,2\n")); err == nil {
		t.Error("expected an error for a foreign header")
	}
}

func TestDecodeMetaVersion(t *testing.T) {
	data, _ := EncodeMeta(RunMetadata{ID: "old", CodecVersion: 0})
	if _, err := DecodeMeta(data); !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	run := simulate(t, "relay", 0.1)
	stamp(run)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, run); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if data.Meta.ID != run.Meta.ID || len(data.Times) != 10 || len(data.Units) != 6 {
		t.Errorf("unexpected export: id %q, %d steps, %d units", data.Meta.ID, len(data.Times), len(data.Units))
	}
}
