// Package masks converts segmentation masks between URL, pixel-array, and
// PNG-byte representations for annotation payloads. The input method and
// output form are validated against closed sets; unknown values are
// configuration errors.
package masks
