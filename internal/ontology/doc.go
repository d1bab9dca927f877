// Package ontology parses the labeling platform's ontology payload into a
// tagged node tree and builds the bidirectional name-path index the encoder
// and decoder depend on.
//
// The raw payload discriminates node variants by key presence (tool nodes
// carry "tool", classifications carry "instructions", options carry
// "label"); Parse performs that probing once and hands everything else a
// closed Kind. BuildIndex assigns each node a deterministic encoded value by
// depth-first pre-order over tools then classifications.
package ontology
