package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/delaynet/internal/network"
)

// WriteTraceCSV writes one row per step: the time, every unit's activity
// (columns u<id>) and every plant variable (columns p<id>_<var>).
func WriteTraceCSV(w io.Writer, tr *network.Trace) error {
	cw := csv.NewWriter(w)

	header := []string{"time"}
	for uid := range tr.Units {
		header = append(header, fmt.Sprintf("u%d", uid))
	}
	dims := make([]int, len(tr.Plants))
	for pid, series := range tr.Plants {
		if len(series) > 0 {
			dims[pid] = len(series[0])
		}
		for v := 0; v < dims[pid]; v++ {
			header = append(header, fmt.Sprintf("p%d_%d", pid, v))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for s, t := range tr.Times {
		row = row[:0]
		row = append(row, formatFloat(t))
		for uid := range tr.Units {
			row = append(row, formatFloat(tr.Units[uid][s]))
		}
		for pid := range tr.Plants {
			for _, x := range tr.Plants[pid][s] {
				row = append(row, formatFloat(x))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTraceCSV reads what WriteTraceCSV wrote.
func ReadTraceCSV(r io.Reader) (*network.Trace, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 || records[0][0] != "time" {
		return nil, fmt.Errorf("trace csv: missing header")
	}

	header := records[0]
	var units int
	var dims []int
	for _, col := range header[1:] {
		switch {
		case strings.HasPrefix(col, "u"):
			units++
		case strings.HasPrefix(col, "p"):
			var pid, v int
			if _, err := fmt.Sscanf(col, "p%d_%d", &pid, &v); err != nil {
				return nil, fmt.Errorf("trace csv: bad column %q", col)
			}
			for len(dims) <= pid {
				dims = append(dims, 0)
			}
			dims[pid]++
		default:
			return nil, fmt.Errorf("trace csv: bad column %q", col)
		}
	}

	steps := len(records) - 1
	tr := &network.Trace{
		Times:  make([]float64, steps),
		Units:  make([][]float64, units),
		Plants: make([][][]float64, len(dims)),
	}
	for uid := range tr.Units {
		tr.Units[uid] = make([]float64, steps)
	}
	for pid := range tr.Plants {
		tr.Plants[pid] = make([][]float64, steps)
	}

	for s, rec := range records[1:] {
		vals := make([]float64, len(rec))
		for i, field := range rec {
			if vals[i], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("trace csv: row %d: %w", s+1, err)
			}
		}
		tr.Times[s] = vals[0]
		col := 1
		for uid := range tr.Units {
			tr.Units[uid][s] = vals[col]
			col++
		}
		for pid, d := range dims {
			tr.Plants[pid][s] = vals[col : col+d : col+d]
			col += d
		}
	}
	return tr, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type ExportData struct {
	Meta   RunMetadata   `json:"meta"`
	Times  []float64     `json:"times"`
	Units  [][]float64   `json:"units"`
	Plants [][][]float64 `json:"plants,omitempty"`
}

// ExportJSON writes a run's metadata and trace as indented JSON.
func ExportJSON(w io.Writer, run *Run) error {
	data := ExportData{Meta: run.Meta}
	if run.Trace != nil {
		data.Times = run.Trace.Times
		data.Units = run.Trace.Units
		data.Plants = run.Trace.Plants
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
