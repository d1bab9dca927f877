package namepath

import "strings"

// DefaultDivider separates segments in a name path unless the caller
// configures another divider.
const DefaultDivider = "///"

// Codec splits and joins divider-delimited name paths. The zero value uses
// DefaultDivider. There is no escaping mechanism; segment names are assumed
// not to contain the divider.
type Codec struct {
	divider string
}

// New returns a codec for the given divider. An empty divider falls back to
// DefaultDivider.
func New(divider string) Codec {
	if divider == "" {
		divider = DefaultDivider
	}
	return Codec{divider: divider}
}

// Divider reports the divider string in use.
func (c Codec) Divider() string {
	if c.divider == "" {
		return DefaultDivider
	}
	return c.divider
}

// First returns the path's leading segment, or the whole path when no
// divider is present.
func (c Codec) First(path string) string {
	first, _, _ := strings.Cut(path, c.Divider())
	return first
}

// Strip removes the leading segment and its trailing divider. A path with a
// single segment strips to the empty string.
func (c Codec) Strip(path string) string {
	_, rest, _ := strings.Cut(path, c.Divider())
	return rest
}

// Join concatenates segments with the divider, skipping empty segments.
func (c Codec) Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		parts = append(parts, segment)
	}
	return strings.Join(parts, c.Divider())
}

// Split breaks a path into its segments.
func (c Codec) Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, c.Divider())
}

// Last returns the path's final segment.
func (c Codec) Last(path string) string {
	divider := c.Divider()
	if idx := strings.LastIndex(path, divider); idx >= 0 {
		return path[idx+len(divider):]
	}
	return path
}

// UniqueFirsts returns the deduplicated first segments of paths in
// first-seen order.
func (c Codec) UniqueFirsts(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	firsts := make([]string, 0, len(paths))
	for _, path := range paths {
		first := c.First(path)
		if _, ok := seen[first]; ok {
			continue
		}
		seen[first] = struct{}{}
		firsts = append(firsts, first)
	}
	return firsts
}

// ChildrenOf returns every path whose first segment equals first, with that
// segment and its trailing divider stripped. The match is on the full
// segment, so a path under "colors" is never a child of "color". A path
// equal to first yields an empty child path.
func (c Codec) ChildrenOf(first string, paths []string) []string {
	children := make([]string, 0, len(paths))
	for _, path := range paths {
		if c.First(path) != first {
			continue
		}
		children = append(children, c.Strip(path))
	}
	return children
}
