// Package coco converts decoded tool instances into the COCO object
// detection and keypoint formats. Category ids reuse the ontology's
// encoded values, so a dataset converted twice from the same ontology
// carries identical ids. Bounding boxes convert to COCO bbox records,
// lines and points to keypoint records, and polygons and masks to
// segmentation records; masks are reduced to the bounding outline of
// their set pixels.
package coco
