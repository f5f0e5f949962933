package analysis

import (
	"math"

	"github.com/san-kum/delaynet/internal/network"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Mean, Std float64
	Min, Max  float64
}

func Summarize(series []float64) Summary {
	if len(series) == 0 {
		return Summary{Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	}
	mean, std := stat.PopMeanStdDev(series, nil)
	return Summary{Mean: mean, Std: std, Min: floats.Min(series), Max: floats.Max(series)}
}

// SummarizeTrace summarises every unit of tr, skipping the first skip
// steps as transient.
func SummarizeTrace(tr *network.Trace, skip int) []Summary {
	out := make([]Summary, len(tr.Units))
	for uid, series := range tr.Units {
		out[uid] = Summarize(series[min(skip, len(series)):])
	}
	return out
}
