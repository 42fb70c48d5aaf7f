package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/collisim/internal/dynamo"
)

const (
	DefaultMass              = 1.0
	DefaultRadius            = 0.5
	DefaultGravity           = 9.81
	DefaultDistanceTolerance = 0.01
	DefaultVelocityTolerance = 1e-9
	DefaultJointTolerance    = 1e-6
	DefaultRecoveryTime      = 0.025

	varsPerBody = 4
	maxPasses   = 1000
)

var ErrDegenerateSpring = errors.New("physics: spring endpoints coincide")

type Disc struct {
	Name       string
	Mass       float64
	Radius     float64
	Elasticity float64
}

// Box is the rectangle the discs live in. Walls have infinite mass.
type Box struct {
	Left, Right, Bottom, Top float64
	Elasticity               float64
}

// Spring connects two discs, or a disc and a fixed anchor when B is negative.
type Spring struct {
	A, B      int
	Anchor    mgl64.Vec2
	Rest      float64
	Stiffness float64
	Damping   float64
}

// Joint holds disc B at a fixed offset from disc A.
type Joint struct {
	A, B   int
	Offset mgl64.Vec2
}

// BallBox is a host simulation of discs in a rectangular box. State layout is
// x, vx, y, vy per disc followed by time, ke, pe and te.
type BallBox struct {
	Discs   []Disc
	Walls   Box
	Springs []Spring
	Joints  []Joint
	Gravity float64
	Damping float64

	DistanceTol  float64
	VelocityTol  float64
	JointTol     float64
	// RecoveryTime sets the least separation speed after an impact on a
	// penetrating pair: the penetration depth divided by RecoveryTime.
	RecoveryTime float64
	jointImpacts bool

	vars     *dynamo.VarsList
	timeIdx  int
	keIdx    int
	peIdx    int
	teIdx    int
	clusters [][]int
	owner    []int
	force    []mgl64.Vec2
}

func NewBallBox(discs []Disc, walls Box) *BallBox {
	b := &BallBox{
		Discs:        discs,
		Walls:        walls,
		Gravity:      DefaultGravity,
		DistanceTol:  DefaultDistanceTolerance,
		VelocityTol:  DefaultVelocityTolerance,
		JointTol:     DefaultJointTolerance,
		RecoveryTime: DefaultRecoveryTime,
	}
	names := make([]string, 0, len(discs)*varsPerBody+4)
	for _, d := range discs {
		names = append(names, "x_"+d.Name, "vx_"+d.Name, "y_"+d.Name, "vy_"+d.Name)
	}
	names = append(names, "time", "ke", "pe", "te")
	b.vars = dynamo.NewVarsList(names, "time")
	b.timeIdx = b.vars.TimeIndex()
	b.keIdx = b.timeIdx + 1
	b.peIdx = b.timeIdx + 2
	b.teIdx = b.timeIdx + 3
	b.vars.MarkComputed(b.keIdx, b.peIdx, b.teIdx)
	b.force = make([]mgl64.Vec2, len(discs))
	b.rebuildClusters()
	return b
}

func (b *BallBox) VarsList() *dynamo.VarsList { return b.vars }

func (b *BallBox) DistanceTolerance() float64 { return b.DistanceTol }

func (b *BallBox) SetJointSmallImpacts(on bool) { b.jointImpacts = on }

func (b *BallBox) AddSpring(s Spring) {
	b.Springs = append(b.Springs, s)
	b.ModifyObjects()
}

// AddJoint joins two discs so they accelerate as one cluster. Positions and
// velocities are taken as given; a velocity mismatch is only corrected by
// joint impacts.
func (b *BallBox) AddJoint(j Joint) {
	b.Joints = append(b.Joints, j)
	b.rebuildClusters()
}

func (b *BallBox) Position(i int) mgl64.Vec2 {
	return mgl64.Vec2{b.vars.Value(i * varsPerBody), b.vars.Value(i*varsPerBody + 2)}
}

func (b *BallBox) Velocity(i int) mgl64.Vec2 {
	return mgl64.Vec2{b.vars.Value(i*varsPerBody + 1), b.vars.Value(i*varsPerBody + 3)}
}

// SetPosition and SetVelocity are discontinuous edits.
func (b *BallBox) SetPosition(i int, p mgl64.Vec2) {
	b.vars.SetValue(i*varsPerBody, p[0], false)
	b.vars.SetValue(i*varsPerBody+2, p[1], false)
	b.ModifyObjects()
}

func (b *BallBox) SetVelocity(i int, v mgl64.Vec2) {
	b.vars.SetValue(i*varsPerBody+1, v[0], false)
	b.vars.SetValue(i*varsPerBody+3, v[1], false)
	b.updateEnergy(false)
}

func (b *BallBox) Time() float64 { return b.vars.Time() }

// rebuildClusters groups discs connected by joints with union-find.
func (b *BallBox) rebuildClusters() {
	n := len(b.Discs)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, j := range b.Joints {
		ra, rb := find(j.A), find(j.B)
		if ra != rb {
			parent[rb] = ra
		}
	}

	b.owner = make([]int, n)
	index := make(map[int]int)
	b.clusters = b.clusters[:0]
	for i := 0; i < n; i++ {
		r := find(i)
		c, ok := index[r]
		if !ok {
			c = len(b.clusters)
			index[r] = c
			b.clusters = append(b.clusters, nil)
		}
		b.clusters[c] = append(b.clusters[c], i)
		b.owner[i] = c
	}
}

func (b *BallBox) clusterMass(c int) float64 {
	m := 0.0
	for _, i := range b.clusters[c] {
		m += b.Discs[i].Mass
	}
	return m
}

func pos(vars []float64, i int) mgl64.Vec2 {
	return mgl64.Vec2{vars[i*varsPerBody], vars[i*varsPerBody+2]}
}

func vel(vars []float64, i int) mgl64.Vec2 {
	return mgl64.Vec2{vars[i*varsPerBody+1], vars[i*varsPerBody+3]}
}

func (b *BallBox) springEnd(vars []float64, s Spring) (mgl64.Vec2, mgl64.Vec2) {
	if s.B < 0 {
		return s.Anchor, mgl64.Vec2{}
	}
	return pos(vars, s.B), vel(vars, s.B)
}

// Evaluate computes accelerations from gravity, damping and springs. Jointed
// discs share the acceleration of their cluster, which keeps joints tight
// without a separate constraint solve.
func (b *BallBox) Evaluate(vars, change []float64, timeStep float64) error {
	if !dynamo.State(vars).IsValid() {
		return &dynamo.EvaluationError{Time: vars[b.timeIdx] + timeStep, Wrapped: dynamo.ErrInvalidState}
	}

	for i, d := range b.Discs {
		b.force[i] = mgl64.Vec2{0, -d.Mass * b.Gravity}.Sub(vel(vars, i).Mul(b.Damping))
	}

	for k, s := range b.Springs {
		pa, va := pos(vars, s.A), vel(vars, s.A)
		pb, vb := b.springEnd(vars, s)
		d := pb.Sub(pa)
		length := d.Len()
		if length == 0 {
			if s.Rest == 0 {
				continue
			}
			return &dynamo.EvaluationError{
				Time:    vars[b.timeIdx] + timeStep,
				Wrapped: fmt.Errorf("%w: spring %d", ErrDegenerateSpring, k),
			}
		}
		n := d.Mul(1 / length)
		f := s.Stiffness*(length-s.Rest) + s.Damping*vb.Sub(va).Dot(n)
		b.force[s.A] = b.force[s.A].Add(n.Mul(f))
		if s.B >= 0 {
			b.force[s.B] = b.force[s.B].Sub(n.Mul(f))
		}
	}

	for c, members := range b.clusters {
		total := mgl64.Vec2{}
		for _, i := range members {
			total = total.Add(b.force[i])
		}
		acc := total.Mul(1 / b.clusterMass(c))
		for _, i := range members {
			change[i*varsPerBody] = vars[i*varsPerBody+1]
			change[i*varsPerBody+1] = acc[0]
			change[i*varsPerBody+2] = vars[i*varsPerBody+3]
			change[i*varsPerBody+3] = acc[1]
		}
	}

	change[b.timeIdx] = 1
	change[b.keIdx] = 0
	change[b.peIdx] = 0
	change[b.teIdx] = 0
	return nil
}

func (b *BallBox) EnergyInfo() dynamo.EnergyInfo {
	vars := b.vars.Values()
	var e dynamo.EnergyInfo
	for i, d := range b.Discs {
		v := vel(vars, i)
		e.Kinetic += 0.5 * d.Mass * v.Dot(v)
		e.Potential += d.Mass * b.Gravity * (pos(vars, i)[1] - b.Walls.Bottom)
	}
	for _, s := range b.Springs {
		pa := pos(vars, s.A)
		pb, _ := b.springEnd(vars, s)
		stretch := pb.Sub(pa).Len() - s.Rest
		e.Potential += 0.5 * s.Stiffness * stretch * stretch
	}
	return e
}

func (b *BallBox) ModifyObjects() { b.updateEnergy(true) }

func (b *BallBox) updateEnergy(continuous bool) {
	e := b.EnergyInfo()
	b.vars.SetValue(b.keIdx, e.Kinetic, continuous)
	b.vars.SetValue(b.peIdx, e.Potential, continuous)
	b.vars.SetValue(b.teIdx, e.Total(), continuous)
}

func (w Box) enabled() bool { return w.Right > w.Left && w.Top > w.Bottom }
