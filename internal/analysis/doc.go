// Package analysis inspects stored runs.
//
//   - [NewPortrait]: the path of two variables, drawn with [Portrait2D.ASCII]
//   - [Crossings]: Poincaré-style threshold crossings of one variable
//   - [Impacts]: velocity reversals and their apparent restitution
//
// Everything works on the header, states and times returned by
// storage.Store.LoadStates, so a run can be analysed long after it finished:
//
//	header, states, times, _ := st.LoadStates(runID)
//	hits, _ := analysis.Impacts(header, states, times, "vy_ball", 0.5)
//	e := analysis.MeanRestitution(hits)
package analysis
