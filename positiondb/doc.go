// Package positiondb implements PositionDB: a hash-bucketed index from
// k-mer to every base position at which it occurs, built in three
// passes (count, fill, sort-and-pack) over a two-pass Stream.
package positiondb
