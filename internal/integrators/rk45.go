package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/delaynet/internal/dynamo"
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}
	// fifth-order weights minus fourth-order weights
	dpE = [7]float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	}
)

const maxSubsteps = 10000

// RK45 is the embedded Dormand-Prince method with error control against
// rtol and atol.
type RK45 struct {
	rtol, atol float64
	safety     float64
	minScale   float64
	maxScale   float64
	lastDt     float64
}

func NewRK45() *RK45 {
	return NewRK45WithTolerance(1e-6, 1e-6)
}

func NewRK45WithTolerance(rtol, atol float64) *RK45 {
	return &RK45{
		rtol:     rtol,
		atol:     atol,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Step integrates from t to t+dt, taking as many internal steps as the
// tolerances require.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	xNew, _ := r.Advance(dyn, x, u, t, dt)
	return xNew
}

// StepAdaptive takes a single trial step of size dt with relative tolerance
// tol and returns the suggested size of the next step.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	xNew, errRatio := r.trial(dyn, x, u, t, dt, tol)
	return xNew, dt * r.scale(errRatio), nil
}

// Advance integrates over exactly [t, t+span]. Rejected trials shrink the
// internal step; it fails with ErrStepTooSmall if that step underflows.
func (r *RK45) Advance(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, span float64) (dynamo.State, error) {
	h := span
	if r.lastDt > 0 && r.lastDt < span {
		h = r.lastDt
	}
	end := t + span
	cur := x.Clone()

	for i := 0; i < maxSubsteps && t < end; i++ {
		if t+h > end {
			h = end - t
		}
		xNew, errRatio := r.trial(dyn, cur, u, t, h, r.rtol)
		next := h * r.scale(errRatio)
		if errRatio > 1 {
			if next < span*1e-12 {
				return cur, fmt.Errorf("%w: h=%g at t=%g", dynamo.ErrStepTooSmall, next, t)
			}
			h = next
			continue
		}
		t += h
		cur = xNew
		r.lastDt = next
		h = next
		if end-t < span*1e-12 {
			break
		}
	}
	return cur, nil
}

func (r *RK45) scale(errRatio float64) float64 {
	switch {
	case errRatio > 1:
		return math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		return math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		return r.maxScale
	}
}

func (r *RK45) trial(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, h, rtol float64) (dynamo.State, float64) {
	n := len(x)
	var k [7]dynamo.State
	k[0] = dyn.Derive(x, u, t)

	tmp := make(dynamo.State, n)
	for s := 1; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * k[j][i]
			}
			tmp[i] = x[i] + h*acc
		}
		if s == 6 {
			break
		}
		k[s] = dyn.Derive(tmp, u, t+dpC[s]*h)
	}
	xNew := tmp
	k[6] = dyn.Derive(xNew, u, t+h)

	errMax := 0.0
	for i := 0; i < n; i++ {
		est := 0.0
		for s := 0; s < 7; s++ {
			est += dpE[s] * k[s][i]
		}
		sc := r.atol + rtol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		errMax = math.Max(errMax, math.Abs(h*est)/sc)
	}
	return xNew, errMax
}
