// Package analytics turns expense records into dashboard aggregates and
// rescales proposed budget splits to fit a savings-constrained total.
//
// Everything here is a pure function over values supplied by the caller: no
// I/O, no shared state, no context.
package analytics
