// Package recipe holds the recipe domain model and the query engine that
// filters, sorts and paginates an in-memory collection.
//
// Query is a pure function: it never mutates its input and, for the same
// collection and Spec, always returns the same QueryResult. Filters are
// sealed Predicate values applied in a fixed order:
//
//  1. TextMatch: case-folded substring of title, description or any tag
//  2. CategoryEquals
//  3. DifficultyEquals
//  4. AnyTag: at least one requested tag present (OR semantics)
//
// Sorting is stable, so recipes that compare equal keep collection order.
package recipe
