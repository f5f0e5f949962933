package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/delaynet/internal/connect"
	"github.com/san-kum/delaynet/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Run.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if _, ok := cfg.Population("rate"); !ok {
		t.Error("expected a rate population")
	}
}

func TestParse(t *testing.T) {
	doc := `
network:
  min_delay: 0.01
  min_buff_size: 4
populations:
  - name: in
    n: 2
    type: source
    init_val: [1, 2]
    function: {name: sin, params: {freq: 1}}
  - name: out
    n: 3
    type: linear
    delay: 0.05
    integ_meth: exp_euler
    params: {tau: [0.1, 0.2, 0.3]}
connections:
  - from: in
    to: out
    rule: fixed_indegree
    indegree: 1
    delay: {distribution: uniform, low: 0.01, high: 0.03}
    synapse:
      type: hebbian
      init_w: {distribution: equal_norm, norm: 2}
      inp_ports: 0
run:
  flat: true
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Network.MinDelay != 0.01 || cfg.Network.RTol != dynamo.DefaultConfig().RTol {
		t.Errorf("unexpected network config %+v", cfg.Network)
	}
	if cfg.Run.Duration != DefaultDuration || !cfg.Run.Flat {
		t.Errorf("unexpected run config %+v", cfg.Run)
	}

	out, _ := cfg.Population("out")
	if len(out.Delay) != 1 || out.Delay[0] != 0.05 {
		t.Errorf("expected scalar delay, got %v", out.Delay)
	}
	if len(out.IntegMeth) != 1 || out.IntegMeth[0] != "exp_euler" {
		t.Errorf("expected scalar integ_meth, got %v", out.IntegMeth)
	}
	if len(out.Params["tau"]) != 3 {
		t.Errorf("expected per-unit tau, got %v", out.Params["tau"])
	}

	cn := cfg.Connections[0]
	if cn.Delay.Kind != connect.KindUniform || cn.Delay.High != 0.03 {
		t.Errorf("unexpected delay %+v", cn.Delay)
	}
	if cn.Synapse.InitW.Kind != connect.KindEqualNorm || cn.Synapse.InitW.Norm != 2 {
		t.Errorf("unexpected weight %+v", cn.Synapse.InitW)
	}
	if len(cn.Synapse.InpPorts) != 1 || cn.Synapse.InpPorts[0] != 0 {
		t.Errorf("unexpected ports %v", cn.Synapse.InpPorts)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad distribution", "populations: [{name: a, n: 1, type: linear}]\nconnections: [{from: a, to: a, rule: all_to_all, delay: {distribution: normal}}]"},
		{"unknown population", "populations: [{name: a, n: 1, type: linear}]\nconnections: [{from: a, to: b, rule: all_to_all, delay: 0.01}]"},
		{"duplicate population", "populations: [{name: a, n: 1, type: linear}, {name: a, n: 1, type: linear}]"},
		{"empty population", "populations: [{name: a, n: 0, type: linear}]"},
		{"bad min delay", "network: {min_delay: -1}"},
		{"unknown plant", "populations: [{name: a, n: 1, type: linear}]\nplant_inputs: [{from: a, plant: p, delay: 0.01}]"},
	}

	for _, tt := range tests {
		if _, err := Parse([]byte(tt.doc)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
	if _, err := Parse([]byte("network: {min_delay: 0}")); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if err := Save(path, cfg); err != nil {
			t.Fatalf("%s: Save: %v", name, err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("%s: Load: %v", name, err)
		}
		if len(loaded.Populations) != len(cfg.Populations) || len(loaded.Connections) != len(cfg.Connections) {
			t.Errorf("%s: structure lost in round trip", name)
		}
		for i, cn := range cfg.Connections {
			if loaded.Connections[i].Delay.Kind != cn.Delay.Kind || loaded.Connections[i].Synapse.InitW.Kind != cn.Synapse.InitW.Kind {
				t.Errorf("%s: connection %d changed kind", name, i)
			}
		}
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("ring")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("ring preset invalid: %v", err)
	}

	cfg.Populations[0].N = 99
	if GetPreset("ring").Populations[0].N == 99 {
		t.Error("GetPreset should return a fresh copy")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Errorf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
}
