// Package dataset holds the date-indexed numeric table that every analysis
// in priceeda runs over.
//
// A Table keeps its dates in the order they were given and resolves exact
// date lookups through a day-keyed index. Columns are float64 slices where
// NaN marks a missing observation. Tables are treated as values: LeftJoin,
// Select and Clone all return new tables and never modify the receiver.
//
// The index is expected to be sorted and unique. New does not enforce this;
// FromRows sorts its input, and a repeated date resolves to the first row
// that carries it.
package dataset
