// Package namepath implements the divider-delimited path grammar used to
// address ontology nodes and answer chains. Paths are plain strings such as
// "car///damaged///yes"; the codec splits them into segments, extracts
// unique leading segments, and narrows a path list to the children of one
// feature. All operations are pure.
package namepath
