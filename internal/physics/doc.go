// Package physics provides BallBox, a host simulation of discs bouncing in a
// rectangular box. It is the reference implementation of [collision.Sim]:
//
//   - [BallBox.Evaluate]: gravity, linear damping and springs
//   - [BallBox.FindCollisions]: disc-wall, disc-disc and joint mismatches
//   - [BallBox.HandleCollisions]: sequential pairwise impulses
//
// Discs connected by a [Joint] form a cluster that accelerates and takes
// impulses as one rigid body.
//
// # Elasticity
//
// The restitution of a contact is the product of the two elasticities, walls
// included:
//
//	box := physics.Box{Left: 0, Right: 10, Bottom: 0, Top: 10, Elasticity: 1}
//	b := physics.NewBallBox([]physics.Disc{{Name: "a", Mass: 1, Radius: 0.5, Elasticity: 0.9}}, box)
package physics
