package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/network"
	"gopkg.in/yaml.v3"
)

const CurrentCodecVersion = 1

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeMeta(m RunMetadata) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func DecodeMeta(data []byte) (RunMetadata, error) {
	var m RunMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return RunMetadata{}, err
	}
	if m.CodecVersion != CurrentCodecVersion {
		return RunMetadata{}, fmt.Errorf("%w: run %s has codec %d, want %d",
			ErrVersionMismatch, m.ID, m.CodecVersion, CurrentCodecVersion)
	}
	return m, nil
}

// Configs are stored as YAML so stored runs can be rerun with the CLI.
func EncodeConfig(cfg *config.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func DecodeConfig(data []byte) (*config.Config, error) {
	return config.Parse(data)
}

func EncodeState(s *network.State) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeState(data []byte) (*network.State, error) {
	var s network.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func EncodeTrace(tr *network.Trace) ([]byte, error) {
	return json.Marshal(tr)
}

func DecodeTrace(data []byte) (*network.Trace, error) {
	var tr network.Trace
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}
