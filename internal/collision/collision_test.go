package collision_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/collisim/internal/collision"
)

func hit(id int, dist float64, needs bool) *pointHit {
	return &pointHit{id: id, dist: dist, needs: needs}
}

type jointHit struct{ pointHit }

func (*jointHit) Bilateral() bool { return true }

var _ = Describe("Dedup", func() {
	DescribeTable("keeps one record per feature pair",
		func(list []collision.Collision, want []collision.Collision) {
			Expect(collision.Dedup(list)).To(Equal(want))
		},
		Entry("empty", []collision.Collision{}, []collision.Collision{}),
		Entry("distinct pairs survive",
			[]collision.Collision{hit(1, 0.004, true), hit(2, 0.003, true)},
			[]collision.Collision{hit(1, 0.004, true), hit(2, 0.003, true)}),
		Entry("needing handling beats closer",
			[]collision.Collision{hit(1, 0.001, false), hit(1, 0.004, true)},
			[]collision.Collision{hit(1, 0.004, true)}),
		Entry("needing handling is kept over a later closer record",
			[]collision.Collision{hit(1, 0.004, true), hit(1, 0.001, false)},
			[]collision.Collision{hit(1, 0.004, true)}),
		Entry("otherwise the closer wins",
			[]collision.Collision{hit(1, 0.004, true), hit(1, 0.002, true), hit(1, 0.003, true)},
			[]collision.Collision{hit(1, 0.002, true)}),
	)
})

var _ = Describe("Penetrating and MinDistance", func() {
	list := []collision.Collision{
		hit(1, 0.004, false),
		hit(2, -0.002, true),
		&jointHit{pointHit{id: 3, dist: -1, needs: true}},
	}

	It("ignores joint collisions when looking for penetration", func() {
		pen := collision.Penetrating(list)
		Expect(pen).To(HaveLen(1))
		Expect(pen[0].SimilarTo(hit(2, 0, false))).To(BeTrue())
	})

	It("reports the smallest distance", func() {
		d, ok := collision.MinDistance(list, false)
		Expect(ok).To(BeTrue())
		Expect(d).To(Equal(-0.002))
	})

	It("can restrict to approaching pairs", func() {
		d, ok := collision.MinDistance(list[:1], true)
		Expect(ok).To(BeFalse())
		Expect(d).To(BeZero())
	})
})

var _ = Describe("Totals", func() {
	It("counts, snapshots and resets", func() {
		t := collision.NewTotals()
		t.AddSearches(3)
		t.AddImpulses(2)
		t.AddCollisions(1)
		t.AddSteps(5)
		t.AddBackups(1)

		snap := t.Snapshot()
		Expect(snap).To(Equal(collision.Snapshot{Searches: 3, Impulses: 2, Collisions: 1, Steps: 5, Backups: 1}))
		Expect(t.String()).To(Equal("searches=3 impulses=2 collisions=1 steps=5 backups=1"))
		Expect(snap.String()).To(Equal(t.String()))

		t.Reset()
		Expect(t.Snapshot()).To(Equal(collision.Snapshot{}))
		Expect(snap.Steps).To(Equal(5))
	})
})
