// Package miner searches integer ranges for a salt whose deterministic
// deployment address satisfies a vanity predicate.
//
// A search is a pure function of (Derive, Encode, Match, Range): candidates
// are visited in ascending order with no skipping, so two runs over the same
// range always return the same salt. Ranges may be split with Partition and
// mined independently; the smallest successful index across partitions equals
// the result of mining the union directly.
package miner
