package dynamo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"
)

// Variable is one slot of the state vector.
type Variable struct {
	Name     string
	Value    float64
	Seq      int
	Computed bool
}

// VarsList is the ordered state vector of a simulation. Each variable carries a
// sequence number that is bumped only by discontinuous changes.
type VarsList struct {
	vars    []Variable
	timeIdx int
}

func NewVarsList(names []string, timeName string) *VarsList {
	vl := &VarsList{
		vars:    make([]Variable, len(names)),
		timeIdx: -1,
	}
	for i, n := range names {
		vl.vars[i].Name = n
		if n == timeName {
			vl.timeIdx = i
		}
	}
	return vl
}

func (vl *VarsList) Len() int { return len(vl.vars) }

func (vl *VarsList) TimeIndex() int { return vl.timeIdx }

func (vl *VarsList) Time() float64 {
	if vl.timeIdx < 0 {
		return 0
	}
	return vl.vars[vl.timeIdx].Value
}

func (vl *VarsList) Index(name string) int {
	for i := range vl.vars {
		if vl.vars[i].Name == name {
			return i
		}
	}
	return -1
}

func (vl *VarsList) Name(i int) string   { return vl.vars[i].Name }
func (vl *VarsList) Value(i int) float64 { return vl.vars[i].Value }
func (vl *VarsList) Seq(i int) int       { return vl.vars[i].Seq }

func (vl *VarsList) Names() []string {
	out := make([]string, len(vl.vars))
	for i := range vl.vars {
		out[i] = vl.vars[i].Name
	}
	return out
}

// MarkComputed flags variables that are derived from others (energies) and
// therefore never integrated.
func (vl *VarsList) MarkComputed(idx ...int) {
	for _, i := range idx {
		vl.vars[i].Computed = true
	}
}

func (vl *VarsList) Computed(i int) bool { return vl.vars[i].Computed }

// Values returns a copy of all values.
func (vl *VarsList) Values() State {
	out := make(State, len(vl.vars))
	vl.ReadInto(out)
	return out
}

// ReadInto copies the values into dst without allocating.
func (vl *VarsList) ReadInto(dst []float64) {
	for i := range vl.vars {
		dst[i] = vl.vars[i].Value
	}
}

// SetValue writes one value. A discontinuous change bumps the sequence number.
func (vl *VarsList) SetValue(i int, v float64, continuous bool) {
	vr := &vl.vars[i]
	if vr.Value == v {
		return
	}
	vr.Value = v
	if !continuous {
		vr.Seq++
	}
}

func (vl *VarsList) SetValues(vals []float64, continuous bool) {
	if len(vals) != len(vl.vars) {
		panic(fmt.Sprintf("dynamo: SetValues got %d values for %d variables", len(vals), len(vl.vars)))
	}
	for i, v := range vals {
		vl.SetValue(i, v, continuous)
	}
}

// IncrSequence marks variables as changed discontinuously without touching
// their values, e.g. after a parameter edit.
func (vl *VarsList) IncrSequence(idx ...int) {
	for _, i := range idx {
		vl.vars[i].Seq++
	}
}

// Sequences returns a copy of every sequence number.
func (vl *VarsList) Sequences() []int {
	out := make([]int, len(vl.vars))
	for i := range vl.vars {
		out[i] = vl.vars[i].Seq
	}
	return out
}

// Fingerprint hashes the exact bit pattern of the values. Two runs that agree
// on the fingerprint agree on every variable.
func (vl *VarsList) Fingerprint() uint64 {
	return Fingerprint(vl.Values())
}

func Fingerprint(s State) uint64 {
	buf := make([]byte, 8*len(s))
	for i, v := range s {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return xxh3.Hash(buf)
}
