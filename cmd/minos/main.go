// Minos is a verdict aggregation and precedent memory engine.
//
// It combines the judgments of independent critics into one decision,
// degrades safely when critics fail, and remembers finalized decisions as
// searchable precedents.
//
// Usage:
//
//	# Start the engine with default configuration
//	minos run
//
//	# Judge a single input
//	minos decide "the text to judge"
//
//	# Query stored precedents
//	minos precedent query --verdict BLOCK --limit 20
//
//	# Find precedents similar to an input
//	minos precedent similar "the text to compare"
//
//	# Export a k-anonymous precedent bundle
//	minos bundle --k 5
//
//	# Show version information
//	minos version
package main

func main() {
	Execute()
}
