package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/san-kum/delaynet/internal/connect"
	"github.com/san-kum/delaynet/internal/dynamo"
	"github.com/san-kum/delaynet/internal/model"
)

func testConfig() dynamo.Config {
	return dynamo.Config{MinDelay: 0.1, MinBuffSize: 4, RTol: 1e-6, ATol: 1e-6, Seed: 7}
}

func newTestNetwork(t *testing.T) *Network {
	t.Helper()
	n, err := New(testConfig(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func mustUnits(t *testing.T, n *Network, count int, spec UnitSpec) []int {
	t.Helper()
	ids, err := n.CreateUnits(count, spec)
	if err != nil {
		t.Fatalf("CreateUnits(%s): %v", spec.Type, err)
	}
	return ids
}

func mustConnect(t *testing.T, n *Network, from, to []int, cs connect.Spec, ss SynSpec) {
	t.Helper()
	if err := n.Connect(from, to, cs, ss); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func stepAt(at float64) func(float64) float64 {
	return func(t float64) float64 {
		if t >= at {
			return 1
		}
		return 0
	}
}

// buildRelay is a step source feeding one linear unit through a 0.2 delay.
func buildRelay(t *testing.T) (*Network, int, int) {
	n := newTestNetwork(t)
	src := mustUnits(t, n, 1, UnitSpec{Type: "source", Function: stepAt(0.31)})
	dst := mustUnits(t, n, 1, UnitSpec{Type: "linear", Params: map[string]Param{"tau": {1}}})
	mustConnect(t, n, src, dst,
		connect.Spec{Rule: connect.OneToOne, Delay: connect.Scalar(0.2)},
		SynSpec{InitW: connect.Scalar(1)})
	return n, src[0], dst[0]
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MinBuffSize = 0
	if _, err := New(cfg); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestDelayedStepResponse(t *testing.T) {
	for _, flat := range []bool{false, true} {
		n, _, dst := buildRelay(t)

		run := n.Run
		if flat {
			run = n.FlatRun
		}
		tr, err := run(1.0)
		if err != nil {
			t.Fatalf("flat=%v: run: %v", flat, err)
		}
		if len(tr.Times) != 10 {
			t.Fatalf("flat=%v: expected 10 samples, got %d", flat, len(tr.Times))
		}

		for s := 0; s <= 5; s++ {
			if tr.Units[dst][s] != 0 {
				t.Errorf("flat=%v: step %d: input arrived early, act=%v", flat, s, tr.Units[dst][s])
			}
		}
		// Only the last three sub-steps of step 5 read t >= 0.31.
		want := 1 - math.Pow(0.975, 3)
		if got := tr.Units[dst][6]; math.Abs(got-want) > 1e-12 {
			t.Errorf("flat=%v: expected %v at step 6, got %v", flat, want, got)
		}
		for s := 7; s < 10; s++ {
			if tr.Units[dst][s] <= tr.Units[dst][s-1] {
				t.Errorf("flat=%v: expected rising activity at step %d", flat, s)
			}
		}
	}
}

func TestTraceTimes(t *testing.T) {
	n, _, _ := buildRelay(t)
	tr, err := n.Run(0.35)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.Times) != 3 {
		t.Fatalf("expected 3 steps for 0.35, got %d", len(tr.Times))
	}
	if tr.Times[0] != 0 || math.Abs(tr.Times[2]-0.2) > 1e-12 {
		t.Errorf("unexpected times %v", tr.Times)
	}
	if math.Abs(n.SimTime()-0.3) > 1e-12 {
		t.Errorf("expected sim time 0.3, got %v", n.SimTime())
	}
}

func TestSourceDelayGrows(t *testing.T) {
	n, src, dst := buildRelay(t)

	if d := n.Unit(src).Delay; math.Abs(d-0.3) > 1e-12 {
		t.Errorf("expected source delay 0.3, got %v", d)
	}
	if d := n.Unit(dst).Delay; math.Abs(d-0.2) > 1e-12 {
		t.Errorf("expected default delay 0.2, got %v", d)
	}

	more := mustUnits(t, n, 1, UnitSpec{Type: "linear"})
	mustConnect(t, n, []int{dst}, more,
		connect.Spec{Rule: connect.OneToOne, Delay: connect.Scalar(0.5)},
		SynSpec{InitW: connect.Scalar(1)})
	u := n.Unit(dst)
	if math.Abs(u.Delay-0.6) > 1e-12 {
		t.Errorf("expected delay 0.6, got %v", u.Delay)
	}
	if u.buf.Len() != 25 {
		t.Errorf("expected 25 buffer samples, got %d", u.buf.Len())
	}
}

func TestGetAct(t *testing.T) {
	n := newTestNetwork(t)
	src := mustUnits(t, n, 1, UnitSpec{Type: "source", Function: func(t float64) float64 { return 2 * t }})
	lin := mustUnits(t, n, 1, UnitSpec{Type: "linear", InitVal: Param{0.5}})

	if _, err := n.Run(0.3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := n.GetAct(src[0], 0.25); math.Abs(v-0.5) > 1e-12 {
		t.Errorf("expected source act 0.5, got %v", v)
	}
	// With no inputs, the unit decays with Euler sub-steps.
	want := 0.5 * math.Pow(0.975, 12)
	if v, _ := n.GetAct(lin[0], n.SimTime()); math.Abs(v-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, v)
	}
	if _, err := n.GetAct(5, 0); !errors.Is(err, dynamo.ErrConstruction) {
		t.Errorf("expected ErrConstruction for bad unit, got %v", err)
	}
	if _, err := n.GetActByStep(src[0], 0); !errors.Is(err, dynamo.ErrNotFlat) {
		t.Errorf("expected ErrNotFlat, got %v", err)
	}
}

func TestCreateUnitsShapes(t *testing.T) {
	tests := []struct {
		name string
		spec UnitSpec
		want error
	}{
		{"unknown type", UnitSpec{Type: "nope"}, dynamo.ErrConstruction},
		{"init_val length", UnitSpec{Type: "linear", InitVal: Param{1, 2}}, dynamo.ErrConstruction},
		{"param length", UnitSpec{Type: "linear", Params: map[string]Param{"tau": {1, 2}}}, dynamo.ErrConstruction},
		{"empty param", UnitSpec{Type: "linear", Params: map[string]Param{"tau": {}}}, dynamo.ErrConstruction},
		{"integ length", UnitSpec{Type: "linear", IntegMeth: []string{"euler", "euler"}}, dynamo.ErrConstruction},
		{"bad param", UnitSpec{Type: "linear", Params: map[string]Param{"tau": {-1}}}, dynamo.ErrConstruction},
		{"off-grid delay", UnitSpec{Type: "linear", Delay: Param{0.15}}, dynamo.ErrDelay},
		{"zero delay", UnitSpec{Type: "linear", Delay: Param{0}}, dynamo.ErrDelay},
		{"scalar init for oscillator", UnitSpec{Type: "oscillator", InitVal: Param{1}}, dynamo.ErrConstruction},
		{"short init_state", UnitSpec{Type: "oscillator", InitState: [][]float64{{1}}}, dynamo.ErrConstruction},
		{"function on linear", UnitSpec{Type: "linear", Function: stepAt(0)}, dynamo.ErrConstruction},
		{"diff_linear ports", UnitSpec{Type: "diff_linear"}, dynamo.ErrConstruction},
	}

	for _, tt := range tests {
		n := newTestNetwork(t)
		if _, err := n.CreateUnits(3, tt.spec); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
		if n.NumUnits() != 0 {
			t.Errorf("%s: failed call created %d units", tt.name, n.NumUnits())
		}
	}
}

func TestCreateUnitsPerUnitValues(t *testing.T) {
	n := newTestNetwork(t)
	ids := mustUnits(t, n, 3, UnitSpec{
		Type:      "linear",
		InitVal:   Param{1, 2, 3},
		Delay:     Param{0.3},
		IntegMeth: []string{"euler", "exp_euler", "euler"},
	})
	if len(ids) != 3 || ids[0] != 0 || ids[2] != 2 {
		t.Fatalf("unexpected ids %v", ids)
	}
	if n.Unit(1).InitVal[0] != 2 || n.Unit(1).Integ != "exp_euler" {
		t.Errorf("per-unit values not applied: %+v", n.Unit(1))
	}
	if math.Abs(n.Unit(2).Delay-0.3) > 1e-12 {
		t.Errorf("expected delay 0.3, got %v", n.Unit(2).Delay)
	}

	more := mustUnits(t, n, 2, UnitSpec{Type: "oscillator", InitState: [][]float64{{1, 0}, {0, 1}}})
	if got := n.Unit(more[1]).InitVal; got[0] != 0 || got[1] != 1 {
		t.Errorf("expected per-unit init_state, got %v", got)
	}
}

func TestColdNetworkRules(t *testing.T) {
	n, src, dst := buildRelay(t)
	if _, err := n.Run(0.1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := n.CreateUnits(1, UnitSpec{Type: "linear"}); !errors.Is(err, dynamo.ErrNotCold) {
		t.Errorf("CreateUnits: expected ErrNotCold, got %v", err)
	}
	if _, err := n.CreatePlant(PlantSpec{Type: "pendulum"}); !errors.Is(err, dynamo.ErrNotCold) {
		t.Errorf("CreatePlant: expected ErrNotCold, got %v", err)
	}
	err := n.Connect([]int{src}, []int{dst},
		connect.Spec{Rule: connect.OneToOne, Delay: connect.Scalar(0.1), AllowMultapses: true},
		SynSpec{InitW: connect.Scalar(1)})
	if !errors.Is(err, dynamo.ErrNotCold) {
		t.Errorf("Connect: expected ErrNotCold, got %v", err)
	}
	if err := n.Flatten(); !errors.Is(err, dynamo.ErrNotCold) {
		t.Errorf("Flatten: expected ErrNotCold, got %v", err)
	}
	if n.IsFlat() {
		t.Error("rejected Flatten left the network flat")
	}
}

func TestIntegrationMethodErrors(t *testing.T) {
	tests := []struct {
		name  string
		spec  UnitSpec
		flat  bool
		valid bool
	}{
		{"euler_maru without noise", UnitSpec{Type: "linear", IntegMeth: []string{"euler_maru"}}, false, false},
		{"euler_maru flat", UnitSpec{Type: "linear", IntegMeth: []string{"euler_maru"}}, true, false},
		{"exp_euler on oscillator", UnitSpec{Type: "oscillator", IntegMeth: []string{"exp_euler"}}, true, false},
		{"exp_euler on linear", UnitSpec{Type: "linear", IntegMeth: []string{"exp_euler"}}, false, false},
		{"unknown", UnitSpec{Type: "linear", IntegMeth: []string{"magic"}}, false, false},
		{"exp_euler on noisy_sigmoidal", UnitSpec{Type: "noisy_sigmoidal", IntegMeth: []string{"exp_euler"}}, true, true},
		{"euler_maru on noisy_linear", UnitSpec{Type: "noisy_linear", IntegMeth: []string{"euler_maru"}}, false, true},
		{"rk4 per object", UnitSpec{Type: "oscillator", IntegMeth: []string{"rk4"}}, false, true},
		{"odeint flat", UnitSpec{Type: "linear", IntegMeth: []string{"odeint"}}, true, true},
	}

	for _, tt := range tests {
		n := newTestNetwork(t)
		mustUnits(t, n, 2, tt.spec)
		var err error
		if tt.flat {
			_, err = n.FlatRun(0.2)
		} else {
			_, err = n.Run(0.2)
		}
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, dynamo.ErrIntegration) {
			t.Errorf("%s: expected ErrIntegration, got %v", tt.name, err)
		}
	}
}

func TestExpEulerRelaxesToDrive(t *testing.T) {
	n := newTestNetwork(t)
	ids := mustUnits(t, n, 1, UnitSpec{
		Type:      "noisy_sigmoidal",
		IntegMeth: []string{"exp_euler"},
		Params:    map[string]Param{"tau": {0.2}, "lambda": {2}},
	})
	if _, err := n.Run(5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// With no input the logistic sits at 0.5, and the drive is 0.5/lambda.
	if got := n.Act(ids[0]); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("expected activity near 0.25, got %v", got)
	}
}

func TestRK4MatchesEulerClosely(t *testing.T) {
	run := func(method string) float64 {
		n := newTestNetwork(t)
		ids := mustUnits(t, n, 1, UnitSpec{
			Type:      "oscillator",
			IntegMeth: []string{method},
			InitState: [][]float64{{1, 0}},
			Params:    map[string]Param{"omega": {2}, "zeta": {0}},
		})
		if _, err := n.Run(1); err != nil {
			t.Fatalf("%s: Run: %v", method, err)
		}
		return n.Act(ids[0])
	}
	exact := math.Cos(2)
	if got := run("rk4"); math.Abs(got-exact) > 1e-6 {
		t.Errorf("rk4: expected %v, got %v", exact, got)
	}
	if got := run("euler"); math.Abs(got-exact) > 0.1 {
		t.Errorf("euler: expected roughly %v, got %v", exact, got)
	}
}

func TestNoisyUnitsAreSeeded(t *testing.T) {
	run := func() float64 {
		n := newTestNetwork(t)
		ids := mustUnits(t, n, 1, UnitSpec{
			Type:      "noisy_linear",
			IntegMeth: []string{"euler_maru"},
			Params:    map[string]Param{"sigma": {0.5}},
		})
		if _, err := n.Run(1); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return n.Act(ids[0])
	}
	a, b := run(), run()
	if a != b {
		t.Errorf("same seed gave %v and %v", a, b)
	}
	if a == 0 {
		t.Error("expected noise to move the activity")
	}
}

func TestNoiseScale(t *testing.T) {
	tests := []struct {
		name      string
		st        model.Stochastic
		drift     float64
		diffusion float64
	}{
		{"none", nil, 0, 0},
		{"drift only", &model.NoisyLinear{Mu: 2}, 0.05, 0},
		{"diffusion", &model.NoisyLinear{Mu: 1, Sigma: 0.5}, 0.025, 0.5 * math.Sqrt(0.025)},
	}
	for _, tt := range tests {
		drift, diffusion := noiseScale(tt.st, 0.025)
		if math.Abs(drift-tt.drift) > 1e-15 || math.Abs(diffusion-tt.diffusion) > 1e-15 {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tt.name, drift, diffusion, tt.drift, tt.diffusion)
		}
	}
}

func TestNoiseFixedAtBind(t *testing.T) {
	run := func(retune bool) float64 {
		n := newTestNetwork(t)
		ids := mustUnits(t, n, 1, UnitSpec{
			Type:      "noisy_linear",
			IntegMeth: []string{"euler_maru"},
			Params:    map[string]Param{"mu": {1}, "sigma": {0}},
		})
		if err := n.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if retune {
			n.Unit(ids[0]).Model.(*model.NoisyLinear).Mu = 100
		}
		for i := 0; i < 4; i++ {
			if err := n.Update(); err != nil {
				t.Fatalf("Update: %v", err)
			}
		}
		return n.Act(ids[0])
	}
	if a, b := run(false), run(true); a != b {
		t.Errorf("drift changed after binding: %v vs %v", a, b)
	}
}

func TestFiltersTrackActivity(t *testing.T) {
	n := newTestNetwork(t)
	src := mustUnits(t, n, 1, UnitSpec{Type: "source", InitVal: Param{1}})
	dst := mustUnits(t, n, 1, UnitSpec{Type: "linear"})
	mustConnect(t, n, src, dst,
		connect.Spec{Rule: connect.OneToOne, Delay: connect.Scalar(0.1)},
		SynSpec{Type: "hebbian", InitW: connect.Scalar(0.5), Params: map[string]float64{"tau_fast": 0.2}})

	if got := n.Filter(src[0], "fast"); got != 1 {
		t.Errorf("expected filter to start at the source value, got %v", got)
	}
	if _, err := n.Run(0.1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	post := n.Act(dst[0])
	want := post * (1 - math.Exp(-0.1/0.2))
	if got := n.Filter(dst[0], "fast"); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected filtered post %v, got %v", want, got)
	}
	if n.Filter(dst[0], "slow") != 0 {
		t.Error("missing filters should read as 0")
	}
}

func TestHebbianWeightGrows(t *testing.T) {
	n := newTestNetwork(t)
	src := mustUnits(t, n, 1, UnitSpec{Type: "source", InitVal: Param{1}})
	dst := mustUnits(t, n, 1, UnitSpec{Type: "linear", InitVal: Param{0.5}})
	mustConnect(t, n, src, dst,
		connect.Spec{Rule: connect.OneToOne, Delay: connect.Scalar(0.1)},
		SynSpec{Type: "hebbian", InitW: connect.Scalar(0.5)})

	if _, err := n.Run(1); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if w := n.Inputs(dst[0])[0].Syn.Weight(); w <= 0.5 {
		t.Errorf("expected weight above 0.5, got %v", w)
	}
}

func TestRunContextStops(t *testing.T) {
	n, _, _ := buildRelay(t)
	tr, err := n.RunContext(context.Background(), 1, false, func(_ *Network, step int) bool {
		return step < 2
	})
	if err != nil {
		t.Fatalf("RunContext: %v", err)
	}
	if len(tr.Times) != 3 || len(tr.Units[0]) != 3 {
		t.Errorf("expected 3 recorded steps, got %d", len(tr.Times))
	}

	fresh, _, _ := buildRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr, err = fresh.RunContext(ctx, 1, true, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(tr.Times) != 0 {
		t.Errorf("expected an empty trace, got %d steps", len(tr.Times))
	}
}
