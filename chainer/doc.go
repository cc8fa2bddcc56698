// Package chainer implements the local-overlap chaining
// dynamic-program: given a set of ungapped alignment segments between
// two sequences, it selects the highest-scoring ordered subset
// describing a candidate overlap, classifying the gaps between
// consecutive segments along the way.
package chainer
