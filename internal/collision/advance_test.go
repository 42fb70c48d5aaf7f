package collision_test

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/san-kum/collisim/internal/integrators"
	"github.com/san-kum/collisim/internal/physics"
)

func newBox(discs ...physics.Disc) *physics.BallBox {
	b := physics.NewBallBox(discs, physics.Box{Left: 0, Right: 20, Bottom: 0, Top: 20, Elasticity: 1})
	b.Gravity = 0
	return b
}

func ball(name string) physics.Disc {
	return physics.Disc{Name: name, Mass: 1, Radius: 0.5, Elasticity: 1}
}

func advanceFor(b *physics.BallBox) *collision.Advance {
	return collision.NewAdvance(b, integrators.NewRK4(b))
}

var _ = Describe("Advance", func() {
	Describe("configuration", func() {
		It("adopts the host distance tolerance", func() {
			b := newBox(ball("a"))
			b.DistanceTol = 0.02
			adv := advanceFor(b)

			Expect(adv.DistanceTolerance()).To(Equal(0.02))
			Expect(adv.TargetGap()).To(BeNumerically("~", 0.01, 1e-15))
			Expect(adv.GapAccuracy()).To(BeNumerically("~", 0.008, 1e-15))
		})

		It("rejects non-positive settings", func() {
			adv := advanceFor(newBox(ball("a")))

			Expect(adv.SetTimeStep(0)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(adv.SetMaxStuck(0)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(adv.SetDistanceTolerance(-1)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(adv.TimeStep()).To(Equal(collision.DefaultTimeStep))
		})

		It("swaps solvers", func() {
			b := newBox(ball("a"))
			adv := advanceFor(b)
			adv.SetSolver(integrators.NewEuler(b))
			Expect(adv.Solver().Name()).To(Equal("euler"))
			Expect(adv.Sim()).To(BeIdenticalTo(b))
		})
	})

	Describe("step sizes", func() {
		var (
			b   *physics.BallBox
			adv *collision.Advance
		)

		BeforeEach(func() {
			b = newBox(ball("a"))
			b.SetPosition(0, mgl64.Vec2{10, 10})
			b.SetVelocity(0, mgl64.Vec2{1, 0})
			adv = advanceFor(b)
		})

		It("treats a zero step as a no-op", func() {
			before := b.VarsList().Values()
			seqs := b.VarsList().Sequences()

			Expect(adv.Advance(0)).To(Succeed())
			Expect(b.VarsList().Values()).To(Equal(before))
			Expect(b.VarsList().Sequences()).To(Equal(seqs))
			Expect(adv.Totals().Snapshot()).To(Equal(collision.Snapshot{}))
		})

		It("rejects a negative step", func() {
			Expect(adv.Advance(-0.1)).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("moves freely when nothing is close", func() {
			Expect(adv.Advance(0.1)).To(Succeed())

			Expect(b.Position(0)[0]).To(BeNumerically("~", 10.1, 1e-12))
			Expect(b.Time()).To(BeNumerically("~", 0.1, 1e-12))
			t := adv.Totals()
			Expect(t.Steps()).To(Equal(4))
			Expect(t.Searches()).To(Equal(0))
			Expect(t.Collisions()).To(Equal(0))
			Expect(t.Backups()).To(Equal(0))
		})

		It("ends exactly on a step that is not a multiple of the time step", func() {
			Expect(adv.Advance(0.06)).To(Succeed())
			Expect(b.Time()).To(BeNumerically("~", 0.06, 1e-12))
			Expect(adv.Totals().Steps()).To(Equal(3))
		})

		It("accumulates totals across calls until reset", func() {
			Expect(adv.Advance(0.05)).To(Succeed())
			Expect(adv.Advance(0.05)).To(Succeed())
			Expect(adv.Totals().Steps()).To(Equal(4))

			adv.Totals().Reset()
			Expect(adv.Totals().Steps()).To(Equal(0))
		})
	})

	Describe("a single bounce", func() {
		var (
			b   *physics.BallBox
			adv *collision.Advance
		)

		BeforeEach(func() {
			b = newBox(ball("a"))
			// The first bisection of a 0.025 step lands at gap 0.005.
			b.SetPosition(0, mgl64.Vec2{0.5175, 10})
			b.SetVelocity(0, mgl64.Vec2{-1, 0})
			adv = advanceFor(b)
		})

		It("locates the impact with one search and handles it once", func() {
			vxSeq := b.VarsList().Seq(1)
			xSeq := b.VarsList().Seq(0)

			Expect(adv.Advance(0.025)).To(Succeed())

			t := adv.Totals()
			Expect(t.Searches()).To(Equal(1))
			Expect(t.Collisions()).To(Equal(1))
			Expect(t.Impulses()).To(Equal(1))
			Expect(t.Steps()).To(Equal(2))
			Expect(t.Backups()).To(Equal(0))

			Expect(b.Velocity(0)[0]).To(BeNumerically("~", 1, 1e-12))
			Expect(b.Position(0)[0]).To(BeNumerically("~", 0.5175, 1e-12))
			Expect(b.Time()).To(BeNumerically("~", 0.025, 1e-12))

			Expect(b.VarsList().Seq(1)).To(Equal(vxSeq + 1))
			Expect(b.VarsList().Seq(0)).To(Equal(xSeq))
		})

		It("conserves energy", func() {
			e0 := b.EnergyInfo().Total()
			Expect(adv.Advance(0.025)).To(Succeed())
			Expect(b.EnergyInfo().Total()).To(BeNumerically("~", e0, 1e-5))
		})
	})

	Describe("collisions already under tolerance", func() {
		It("accepts a sub-step that ends slightly penetrating", func() {
			b := newBox(ball("a"))
			b.Gravity = physics.DefaultGravity
			b.SetPosition(0, mgl64.Vec2{10, 0.501})
			b.SetVelocity(0, mgl64.Vec2{0, 0.05})
			adv := advanceFor(b)

			Expect(adv.Advance(0.025)).To(Succeed())

			Expect(b.Time()).To(BeNumerically("~", 0.025, 1e-12))
			Expect(b.Velocity(0)[1]).To(BeNumerically("~", physics.DefaultGravity*0.025-0.05, 1e-9))
			t := adv.Totals()
			Expect(t.Collisions()).To(Equal(1))
			Expect(t.Searches()).To(Equal(0))
			Expect(t.Steps()).To(Equal(1))
		})

		It("handles an approaching pair at the start of the sub-step", func() {
			p := newWallPoint(0.005, -1)
			adv := collision.NewAdvance(p, integrators.NewEuler(p))

			Expect(adv.Advance(0.025)).To(Succeed())

			Expect(p.handled).To(Equal(1))
			Expect(p.vars.Value(1)).To(Equal(1.0))
			Expect(p.vars.Value(0)).To(BeNumerically("~", 0.03, 1e-12))
			Expect(p.vars.Time()).To(BeNumerically("~", 0.025, 1e-12))
			Expect(adv.Totals().Searches()).To(Equal(0))
		})

		It("halves the sub-step while the end penetrates beyond tolerance", func() {
			b := newBox(ball("a"))
			b.Gravity = 100
			b.SetPosition(0, mgl64.Vec2{10, 0.505})
			adv := advanceFor(b)

			Expect(adv.Advance(0.025)).To(Succeed())

			t := adv.Totals()
			Expect(t.Searches()).To(Equal(1))
			Expect(t.Collisions()).To(Equal(1))
			Expect(b.Time()).To(BeNumerically("~", 0.025, 1e-12))
			gap, _ := b.MinSeparation()
			Expect(gap).To(BeNumerically(">=", -adv.DistanceTolerance()))
		})
	})

	Describe("longer runs", func() {
		It("keeps a bouncing ball above the floor with constant energy", func() {
			b := newBox(ball("a"))
			b.Gravity = physics.DefaultGravity
			b.SetPosition(0, mgl64.Vec2{10, 5})
			adv := advanceFor(b)
			e0 := b.EnergyInfo().Total()

			for i := 0; i < 120; i++ {
				Expect(adv.Advance(0.025)).To(Succeed())
				gap, ok := b.MinSeparation()
				Expect(ok).To(BeTrue())
				Expect(gap).To(BeNumerically(">=", -adv.DistanceTolerance()))
			}
			Expect(adv.Totals().Collisions()).To(BeNumerically(">=", 1))
			Expect(b.EnergyInfo().Total()).To(BeNumerically("~", e0, 1e-5))
		})

		It("swaps the velocities of equal discs in a head-on impact", func() {
			b := newBox(ball("a"), ball("b"))
			b.SetPosition(0, mgl64.Vec2{5, 10})
			b.SetVelocity(0, mgl64.Vec2{1, 0})
			b.SetPosition(1, mgl64.Vec2{6.23, 10})
			b.SetVelocity(1, mgl64.Vec2{-1, 0})
			adv := advanceFor(b)

			Expect(adv.Advance(0.5)).To(Succeed())

			Expect(b.Velocity(0)[0]).To(BeNumerically("~", -1, 1e-12))
			Expect(b.Velocity(1)[0]).To(BeNumerically("~", 1, 1e-12))
			Expect(adv.Totals().Collisions()).To(Equal(1))
			gap, _ := b.MinSeparation()
			Expect(gap).To(BeNumerically(">", 0))
		})

		It("catches fast discs that would cross within one sub-step", func() {
			b := newBox(ball("a"), ball("b"))
			b.SetPosition(0, mgl64.Vec2{9.4, 10})
			b.SetVelocity(0, mgl64.Vec2{60, 0})
			b.SetPosition(1, mgl64.Vec2{10.6, 10})
			b.SetVelocity(1, mgl64.Vec2{-60, 0})
			adv := advanceFor(b)

			Expect(adv.Advance(0.025)).To(Succeed())

			Expect(adv.Totals().Collisions()).To(Equal(1))
			Expect(adv.Totals().Searches()).To(BeNumerically(">", 0))
			Expect(b.Velocity(0)[0]).To(BeNumerically("~", -60, 1e-9))
			Expect(b.Velocity(1)[0]).To(BeNumerically("~", 60, 1e-9))
			Expect(b.Position(0)[0]).To(BeNumerically("<", b.Position(1)[0]))
			gap, _ := b.MinSeparation()
			Expect(gap).To(BeNumerically(">", 0))
		})

		It("lets an inelastic ball come to rest on the floor", func() {
			b := newBox(ball("a"))
			b.Gravity = physics.DefaultGravity
			b.Walls.Elasticity = 0.8
			b.SetPosition(0, mgl64.Vec2{10, 5})
			adv := advanceFor(b)

			for i := 0; i < 1200; i++ {
				Expect(adv.Advance(0.025)).To(Succeed(), "t=%f", b.Time())
				gap, _ := b.MinSeparation()
				Expect(gap).To(BeNumerically(">=", -adv.DistanceTolerance()))
			}
			Expect(b.Position(0)[1]).To(BeNumerically("<", 0.51))
		})
	})

	It("resolves touching discs as one group", func() {
		b := newBox(ball("s"), ball("b1"), ball("b2"))
		b.SetPosition(0, mgl64.Vec2{5, 10})
		b.SetVelocity(0, mgl64.Vec2{1, 0})
		b.SetPosition(1, mgl64.Vec2{6.0175, 10})
		b.SetPosition(2, mgl64.Vec2{7.0225, 10})
		adv := advanceFor(b)

		Expect(adv.Advance(0.025)).To(Succeed())

		Expect(adv.Totals().Collisions()).To(Equal(2))
		Expect(b.Velocity(0)[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(b.Velocity(1)[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(b.Velocity(2)[0]).To(BeNumerically("~", 1, 1e-12))
	})

	Describe("joint small impacts", func() {
		var b *physics.BallBox

		BeforeEach(func() {
			b = newBox(ball("a"), ball("b"))
			b.SetPosition(0, mgl64.Vec2{10, 10})
			b.SetPosition(1, mgl64.Vec2{10, 12})
			b.SetVelocity(1, mgl64.Vec2{0.01, 0})
			b.AddJoint(physics.Joint{A: 0, B: 1, Offset: mgl64.Vec2{0, 2}})
		})

		It("leaves joint mismatches alone when off", func() {
			adv := advanceFor(b)
			Expect(adv.JointSmallImpacts()).To(BeFalse())
			Expect(adv.Advance(0.05)).To(Succeed())
			Expect(b.CheckJoints(1e-6)).To(HaveOccurred())
			Expect(adv.Totals().Collisions()).To(Equal(0))
		})

		It("equalizes jointed velocities when on", func() {
			adv := advanceFor(b)
			adv.SetJointSmallImpacts(true)
			Expect(adv.Advance(0.05)).To(Succeed())

			Expect(b.Velocity(0)[0]).To(BeNumerically("~", 0.005, 1e-12))
			Expect(b.Velocity(1)[0]).To(BeNumerically("~", 0.005, 1e-12))
			Expect(adv.Totals().Collisions()).To(Equal(1))
			Expect(adv.Totals().Searches()).To(Equal(0))

			// The offset drifted by 0.01*0.025 before the first sub-step was
			// handled and is not corrected afterwards.
			Expect(b.CheckJoints(3e-4)).To(Succeed())
			Expect(b.CheckJoints(2e-4)).To(MatchError(ContainSubstring("offset error 0.00025")))
		})
	})

	Describe("failure modes", func() {
		It("reports a stuck simulation after the retry budget", func() {
			p := newWallPoint(0.0175, -1)
			p.onHandle = ignoreCollisions
			adv := collision.NewAdvance(p, integrators.NewEuler(p))

			err := adv.Advance(0.025)

			Expect(err).To(MatchError(dynamo.ErrStuck))
			var stuck *dynamo.StuckError
			Expect(errors.As(err, &stuck)).To(BeTrue())
			Expect(stuck.Attempts).To(Equal(collision.DefaultMaxStuck))
			Expect(stuck.Collisions).NotTo(BeEmpty())
			Expect(stuck.Time).To(BeNumerically("<", 0.025))
			Expect(p.handled).To(BeNumerically(">", collision.DefaultMaxStuck))
		})

		It("honours a custom stuck limit", func() {
			p := newWallPoint(0.0175, -1)
			p.onHandle = ignoreCollisions
			adv := collision.NewAdvance(p, integrators.NewEuler(p))
			Expect(adv.SetMaxStuck(3)).To(Succeed())

			var stuck *dynamo.StuckError
			Expect(errors.As(adv.Advance(0.025), &stuck)).To(BeTrue())
			Expect(stuck.Attempts).To(Equal(3))
		})

		It("backs up when handling leaves the state interpenetrating", func() {
			p := newWallPoint(0.0175, -1)
			p.onHandle = func(p *wallPoint, _ []collision.Collision) error {
				p.onHandle = nil
				p.vars.SetValue(0, -1, false)
				return nil
			}
			adv := collision.NewAdvance(p, integrators.NewEuler(p))

			Expect(adv.Advance(0.025)).To(Succeed())

			Expect(adv.Totals().Backups()).To(Equal(1))
			Expect(adv.Totals().Collisions()).To(Equal(1))
			Expect(p.vars.Value(1)).To(Equal(1.0))
			Expect(p.vars.Value(0)).To(BeNumerically(">=", 0))
			Expect(p.vars.Time()).To(BeNumerically("~", 0.025, 1e-12))
		})

		It("falls back to the last clear state when the search never finds the gap", func() {
			p := newWallPoint(0.0175, -1)
			p.bandless = true
			adv := collision.NewAdvance(p, integrators.NewEuler(p))

			err := adv.Advance(0.025)

			Expect(err).To(MatchError(dynamo.ErrStuck))
			Expect(adv.Totals().Searches()).To(BeNumerically(">=", 40))
			Expect(p.handled).To(Equal(0))
			Expect(p.vars.Time()).To(BeNumerically("~", 0.0175, 1e-9))
			Expect(p.vars.Value(0)).To(BeNumerically(">=", 0))
		})

		It("propagates handler errors", func() {
			p := newWallPoint(0.0175, -1)
			p.onHandle = func(*wallPoint, []collision.Collision) error {
				return &dynamo.IllegalCollisionError{Collision: "hit0"}
			}
			adv := collision.NewAdvance(p, integrators.NewEuler(p))

			Expect(adv.Advance(0.025)).To(MatchError(dynamo.ErrIllegalCollision))
		})

		It("restores the state when the solver fails", func() {
			p := newWallPoint(5, -1)
			p.failEval = true
			adv := collision.NewAdvance(p, integrators.NewEuler(p))

			Expect(adv.Advance(0.025)).To(MatchError(errBoom))
			Expect(p.vars.Value(0)).To(Equal(5.0))
			Expect(p.vars.Time()).To(Equal(0.0))
		})
	})

	It("hands the host one record per feature pair", func() {
		p := newWallPoint(0.0175, -1)
		p.duplicate = true
		adv := collision.NewAdvance(p, integrators.NewEuler(p))

		Expect(adv.Advance(0.025)).To(Succeed())
		Expect(p.handled).To(Equal(1))
		Expect(p.lastGroup).To(HaveLen(1))
		Expect(p.lastGroup[0].Distance()).To(BeNumerically("<", 0.006))
	})
})
