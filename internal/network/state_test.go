package network

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/san-kum/delaynet/internal/dynamo"
)

func TestSaveSetStateRoundTrip(t *testing.T) {
	for _, flat := range []bool{false, true} {
		n := buildMixed(t)
		run := n.Run
		if flat {
			run = n.FlatRun
		}
		if _, err := run(0.5); err != nil {
			t.Fatalf("flat=%v: warm-up: %v", flat, err)
		}

		saved := n.SaveState()
		first, err := run(1)
		if err != nil {
			t.Fatalf("flat=%v: first run: %v", flat, err)
		}

		// Restore through JSON, as a store would.
		data, err := json.Marshal(saved)
		if err != nil {
			t.Fatalf("flat=%v: marshal: %v", flat, err)
		}
		var decoded State
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("flat=%v: unmarshal: %v", flat, err)
		}
		if err := n.SetState(&decoded); err != nil {
			t.Fatalf("flat=%v: SetState: %v", flat, err)
		}
		second, err := run(1)
		if err != nil {
			t.Fatalf("flat=%v: second run: %v", flat, err)
		}
		compareTraces(t, first, second, 0)
		for i := range first.Times {
			if first.Times[i] != second.Times[i] {
				t.Fatalf("flat=%v: time %d differs: %v vs %v", flat, i, first.Times[i], second.Times[i])
			}
		}
	}
}

func TestSaveStateIsACopy(t *testing.T) {
	n := buildMixed(t)
	saved := n.SaveState()
	before := saved.Buffers[2].Data[0][0]

	if _, err := n.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if saved.Buffers[2].Data[0][0] != before {
		t.Error("running changed a saved buffer")
	}
	if saved.Buffers[0] != nil {
		t.Error("source units should have no buffer")
	}
}

func TestSetStateMismatch(t *testing.T) {
	n := buildMixed(t)
	other, _, _ := buildRelay(t)

	tests := []struct {
		name  string
		state *State
	}{
		{"nil", nil},
		{"other network", other.SaveState()},
	}

	flatNet := buildMixed(t)
	if err := flatNet.Flatten(); err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	tests = append(tests, struct {
		name  string
		state *State
	}{"flat snapshot", flatNet.SaveState()})

	changed := n.SaveState()
	changed.Inputs[2][0].Delay += 0.1
	tests = append(tests, struct {
		name  string
		state *State
	}{"different delay", changed})

	for _, tt := range tests {
		if err := n.SetState(tt.state); !errors.Is(err, dynamo.ErrStateMismatch) {
			t.Errorf("%s: expected ErrStateMismatch, got %v", tt.name, err)
		}
	}
	if n.SimTime() != 0 {
		t.Error("rejected snapshot modified the network")
	}
}

func TestStructureClosedAfterRestore(t *testing.T) {
	n := newTestNetwork(t)
	mustUnits(t, n, 2, UnitSpec{Type: "linear", InitVal: Param{0.5}})
	cold := n.SaveState()
	if _, err := n.Run(0.3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := n.SetState(cold); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	if _, err := n.CreatePlant(PlantSpec{Type: "pendulum"}); !errors.Is(err, dynamo.ErrNotCold) {
		t.Errorf("CreatePlant: expected ErrNotCold, got %v", err)
	}
	if _, err := n.CreateUnits(1, UnitSpec{Type: "linear"}); !errors.Is(err, dynamo.ErrNotCold) {
		t.Errorf("CreateUnits: expected ErrNotCold, got %v", err)
	}
	if n.NumPlants() != 0 || n.NumUnits() != 2 {
		t.Errorf("rejected calls changed the structure: %d units, %d plants", n.NumUnits(), n.NumPlants())
	}
	if _, err := n.Run(0.3); err != nil {
		t.Errorf("Run after restore: %v", err)
	}
}

func TestCreatePlantBeforeFirstStep(t *testing.T) {
	n := newTestNetwork(t)
	mustUnits(t, n, 1, UnitSpec{Type: "linear", InitVal: Param{0.5}})
	if _, err := n.CreatePlant(PlantSpec{Type: "pendulum", InitState: []float64{0.1, 0}}); err != nil {
		t.Fatalf("CreatePlant: %v", err)
	}
	tr, err := n.Run(0.3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.Plants) != 1 || len(tr.Plants[0]) != 3 {
		t.Errorf("expected 3 plant samples, got %v", tr.Plants)
	}
}
