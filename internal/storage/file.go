package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
)

const (
	metaFile   = "metadata.json"
	configFile = "config.yaml"
	traceFile  = "states.csv"
	stateFile  = "state.json"
)

// FileStore keeps one directory per run.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(ctx context.Context) error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) SaveRun(ctx context.Context, run *Run) (string, error) {
	stamp(run)
	runDir := filepath.Join(s.baseDir, run.Meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta, err := EncodeMeta(run.Meta)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metaFile), meta, 0644); err != nil {
		return "", err
	}

	if run.Config != nil {
		data, err := EncodeConfig(run.Config)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(runDir, configFile), data, 0644); err != nil {
			return "", err
		}
	}

	if run.Trace != nil {
		f, err := os.Create(filepath.Join(runDir, traceFile))
		if err != nil {
			return "", err
		}
		if err := WriteTraceCSV(f, run.Trace); err != nil {
			f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
	}

	if run.Final != nil {
		data, err := EncodeState(run.Final)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(runDir, stateFile), data, 0644); err != nil {
			return "", err
		}
	}
	return run.Meta.ID, nil
}

func (s *FileStore) GetRun(ctx context.Context, id string) (*Run, bool, error) {
	runDir := filepath.Join(s.baseDir, id)
	data, err := os.ReadFile(filepath.Join(runDir, metaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	meta, err := DecodeMeta(data)
	if err != nil {
		return nil, false, err
	}
	run := &Run{Meta: meta}

	if data, err := readOptional(filepath.Join(runDir, configFile)); err != nil {
		return nil, false, err
	} else if data != nil {
		if run.Config, err = DecodeConfig(data); err != nil {
			return nil, false, err
		}
	}

	f, err := os.Open(filepath.Join(runDir, traceFile))
	switch {
	case err == nil:
		run.Trace, err = ReadTraceCSV(f)
		f.Close()
		if err != nil {
			return nil, false, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, false, err
	}

	if data, err := readOptional(filepath.Join(runDir, stateFile)); err != nil {
		return nil, false, err
	} else if data != nil {
		if run.Final, err = DecodeState(data); err != nil {
			return nil, false, err
		}
	}
	return run, true, nil
}

func (s *FileStore) ListRuns(ctx context.Context) ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), metaFile))
		if err != nil {
			continue
		}
		meta, err := DecodeMeta(data)
		if err != nil {
			continue
		}
		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}
