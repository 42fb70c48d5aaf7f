package collision

import "fmt"

// Totals accumulates collision statistics for one simulation run. It never
// influences control flow.
type Totals struct {
	searches   int
	impulses   int
	collisions int
	steps      int
	backups    int
}

func NewTotals() *Totals { return &Totals{} }

func (t *Totals) AddSearches(n int)   { t.searches += n }
func (t *Totals) AddImpulses(n int)   { t.impulses += n }
func (t *Totals) AddCollisions(n int) { t.collisions += n }
func (t *Totals) AddSteps(n int)      { t.steps += n }
func (t *Totals) AddBackups(n int)    { t.backups += n }

func (t *Totals) Searches() int   { return t.searches }
func (t *Totals) Impulses() int   { return t.impulses }
func (t *Totals) Collisions() int { return t.collisions }
func (t *Totals) Steps() int      { return t.steps }
func (t *Totals) Backups() int    { return t.backups }

func (t *Totals) Reset() { *t = Totals{} }

// Snapshot is a value copy of the counters, safe to keep after the run goes on.
type Snapshot struct {
	Searches   int `json:"searches" yaml:"searches"`
	Impulses   int `json:"impulses" yaml:"impulses"`
	Collisions int `json:"collisions" yaml:"collisions"`
	Steps      int `json:"steps" yaml:"steps"`
	Backups    int `json:"backups" yaml:"backups"`
}

func (t *Totals) Snapshot() Snapshot {
	return Snapshot{
		Searches:   t.searches,
		Impulses:   t.impulses,
		Collisions: t.collisions,
		Steps:      t.steps,
		Backups:    t.backups,
	}
}

func (t *Totals) String() string { return t.Snapshot().String() }

func (s Snapshot) String() string {
	return fmt.Sprintf("searches=%d impulses=%d collisions=%d steps=%d backups=%d",
		s.Searches, s.Impulses, s.Collisions, s.Steps, s.Backups)
}
