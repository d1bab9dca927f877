// Package annotate converts annotations between their flat tabular form and
// the nested JSON records the labeling platform's upload API expects.
//
// The Encoder reads the inverse ontology index (name path → entry) and
// recursively builds radio/checklist/text answer chains beneath geometry
// tools and top-level classifications. The Decoder is its inverse: it walks
// exported label trees with the forward index (schema id → entry) and
// flattens every answer chain back into divider-delimited leaf paths.
// Missing index entries always fail loudly; a silent default would corrupt
// downstream category assignment.
package annotate
