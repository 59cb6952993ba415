// Package equivalence folds ordered equivalence-claim histories into current
// state. Both resolvers are pure: callers pass claims already sorted by
// (created, id) with both identifiers loaded, and nothing is cached.
package equivalence
