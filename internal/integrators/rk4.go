package integrators

import "github.com/san-kum/collisim/internal/dynamo"

type RK4 struct {
	sim            dynamo.ODESim
	k1, k2, k3, k4 []float64
	start          []float64
	scratch        []float64
}

func NewRK4(sim dynamo.ODESim) *RK4 {
	return &RK4{sim: sim}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make([]float64, n)
		r.k2 = make([]float64, n)
		r.k3 = make([]float64, n)
		r.k4 = make([]float64, n)
		r.start = make([]float64, n)
		r.scratch = make([]float64, n)
	}
}

func (r *RK4) Step(dt float64) error {
	vars := r.sim.VarsList()
	n := vars.Len()
	r.ensureScratch(n)
	vars.ReadInto(r.start)

	copy(r.scratch, r.start)
	zero(r.k1)
	if err := r.sim.Evaluate(r.scratch, r.k1, 0); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = r.start[i] + dt*0.5*r.k1[i]
	}
	zero(r.k2)
	if err := r.sim.Evaluate(r.scratch, r.k2, dt*0.5); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = r.start[i] + dt*0.5*r.k2[i]
	}
	zero(r.k3)
	if err := r.sim.Evaluate(r.scratch, r.k3, dt*0.5); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = r.start[i] + dt*r.k3[i]
	}
	zero(r.k4)
	if err := r.sim.Evaluate(r.scratch, r.k4, dt); err != nil {
		return err
	}

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		r.scratch[i] = r.start[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	vars.SetValues(r.scratch, true)
	return nil
}
