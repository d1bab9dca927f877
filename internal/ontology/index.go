package ontology

import (
	"fmt"

	"labelsheet/internal/namepath"
	"labelsheet/internal/services"
)

// Direction selects how an index is keyed.
type Direction int

const (
	// Forward keys entries by feature schema id.
	Forward Direction = iota
	// Inverse keys entries by full name path.
	Inverse
)

// Entry is the metadata recorded for one ontology node. EncodedValue is the
// node's 1-based ordinal in depth-first pre-order over the whole tree (tools
// first, then classifications) and doubles as a compact category id.
type Entry struct {
	Name         string
	Type         string
	Kind         Kind
	EncodedValue int
	NamePath     string
	SchemaID     string
}

// Index maps every ontology node to its Entry, keyed by schema id (Forward)
// or name path (Inverse). Built once per ontology version and read-only
// afterwards, so it is safe for concurrent use.
type Index struct {
	codec     namepath.Codec
	direction Direction
	entries   map[string]Entry
	order     []string
}

// BuildIndex walks tree depth-first in authored order and records every node
// exactly once. Building twice from the same tree yields identical encoded
// values.
func BuildIndex(tree *Tree, codec namepath.Codec, direction Direction) (*Index, error) {
	if tree == nil {
		return nil, services.Wrap(services.ErrConfiguration, "ontology", "index", "nil ontology tree", nil)
	}

	idx := &Index{
		codec:     codec,
		direction: direction,
		entries:   make(map[string]Entry),
	}

	counter, err := idx.walk(tree.Tools, "", 0)
	if err != nil {
		return nil, err
	}
	if _, err := idx.walk(tree.Classifications, "", counter); err != nil {
		return nil, err
	}
	return idx, nil
}

// walk threads the encoded-value counter through the recursion and returns
// its value after the layer.
func (idx *Index) walk(layer []Node, parentPath string, counter int) (int, error) {
	for _, node := range layer {
		counter++
		path := idx.codec.Join(parentPath, node.Name)

		key := node.SchemaID
		if idx.direction == Inverse {
			key = path
		}
		if _, exists := idx.entries[key]; exists {
			return counter, services.Wrap(services.ErrConfiguration, "ontology", "index",
				fmt.Sprintf("duplicate index key %q", key), nil)
		}
		idx.entries[key] = Entry{
			Name:         node.Name,
			Type:         node.Type,
			Kind:         node.Kind,
			EncodedValue: counter,
			NamePath:     path,
			SchemaID:     node.SchemaID,
		}
		idx.order = append(idx.order, key)

		var err error
		counter, err = idx.walk(node.Children, path, counter)
		if err != nil {
			return counter, err
		}
	}
	return counter, nil
}

// Direction reports how the index is keyed.
func (idx *Index) Direction() Direction { return idx.direction }

// Codec returns the path codec the index was built with.
func (idx *Index) Codec() namepath.Codec { return idx.codec }

// Len reports the number of indexed nodes.
func (idx *Index) Len() int { return len(idx.entries) }

// Keys returns the index keys in traversal order.
func (idx *Index) Keys() []string {
	keys := make([]string, len(idx.order))
	copy(keys, idx.order)
	return keys
}

// Lookup returns the entry for key. A miss is a data-integrity error, never
// a defaulted entry.
func (idx *Index) Lookup(key string) (Entry, error) {
	entry, ok := idx.entries[key]
	if !ok {
		return Entry{}, services.Wrap(services.ErrLookup, "ontology", "lookup",
			fmt.Sprintf("no index entry for %q", key), nil)
	}
	return entry, nil
}

// Contains reports whether key is indexed.
func (idx *Index) Contains(key string) bool {
	_, ok := idx.entries[key]
	return ok
}

// Plain renders the index in its compact form: schema id → name path for
// Forward, name path → schema id for Inverse.
func (idx *Index) Plain() map[string]string {
	out := make(map[string]string, len(idx.entries))
	for key, entry := range idx.entries {
		if idx.direction == Forward {
			out[key] = entry.NamePath
		} else {
			out[key] = entry.SchemaID
		}
	}
	return out
}

// Detailed renders the index with full entries.
func (idx *Index) Detailed() map[string]Entry {
	out := make(map[string]Entry, len(idx.entries))
	for key, entry := range idx.entries {
		out[key] = entry
	}
	return out
}
