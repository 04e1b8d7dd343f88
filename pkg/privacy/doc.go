// Package privacy transforms stored precedents into k-anonymous bundles for
// cross-boundary sharing.
//
// A bundle is derived and disposable: it is built from a snapshot of stored
// precedents and the originals are never mutated. Construction groups
// precedents by verdict, clusters each group to at least k members (merging
// undersized remainders into the nearest cluster), generalizes
// quasi-identifying attributes (timestamp to date, location to country,
// numeric age to fixed ranges), and redacts configured sensitive fields to a
// constant placeholder. Attributes that are not uniform within a final
// cluster are suppressed so every released record shares its generalized
// signature with at least k-1 others.
//
// VerifyKAnonymity re-derives the guarantee from the bundle contents rather
// than trusting construction, so it can be run on any already-built bundle.
package privacy
