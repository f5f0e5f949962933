package integrators

import "github.com/san-kum/delaynet/internal/dynamo"

// Mechanical is implemented by systems that say which state variables are
// positions and which are the matching velocities. Systems without it are
// taken to be laid out as [positions..., velocities...].
type Mechanical interface {
	Coordinates() (pos, vel []int)
}

func coordinates(dyn dynamo.System, n int) (pos, vel []int) {
	if m, ok := dyn.(Mechanical); ok {
		return m.Coordinates()
	}
	half := n / 2
	pos, vel = make([]int, half), make([]int, half)
	for i := range pos {
		pos[i], vel[i] = i, half+i
	}
	return pos, vel
}

// Verlet is velocity Verlet. The acceleration is read from the derivative
// of each velocity variable.
type Verlet struct {
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	pos, vel := coordinates(dyn, len(x))
	if len(v.scratch) != len(x) {
		v.scratch = make(dynamo.State, len(x))
	}

	acc := dyn.Derive(x, u, t)
	next := x.Clone()
	for i, p := range pos {
		next[p] = x[p] + dt*x[vel[i]] + 0.5*dt*dt*acc[vel[i]]
	}
	copy(v.scratch, next)

	accNew := dyn.Derive(v.scratch, u, t+dt)
	for _, q := range vel {
		next[q] = x[q] + 0.5*dt*(acc[q]+accNew[q])
	}
	return next
}

// Leapfrog is kick-drift-kick over the same coordinates as Verlet.
type Leapfrog struct {
	scratch dynamo.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	pos, vel := coordinates(dyn, len(x))
	if len(l.scratch) != len(x) {
		l.scratch = make(dynamo.State, len(x))
	}

	acc := dyn.Derive(x, u, t)
	copy(l.scratch, x)
	for i, p := range pos {
		kick := x[vel[i]] + 0.5*dt*acc[vel[i]]
		l.scratch[vel[i]] = kick
		l.scratch[p] = x[p] + dt*kick
	}

	accNew := dyn.Derive(l.scratch, u, t+dt)
	next := l.scratch.Clone()
	for _, q := range vel {
		next[q] = l.scratch[q] + 0.5*dt*accNew[q]
	}
	return next
}
