// Package materials provides thermal expansion correlations for reactor
// materials.
//
// Every material reports its free linear expansion as a percentage of the
// length at 0 °C. [LinearExpansionFactor] turns two of those readings into the
// fractional length change between a reference and a current temperature:
//
//	dL/L0 = (dLL(Tc) - dLL(T0)) / (100 + dLL(T0))
//
// Factors computed this way compose exactly: expanding from T0 to T1 and then
// from T1 to T2 gives the same length as expanding from T0 to T2 directly.
package materials
