// Package attrs implements the attribute set attached to every stored
// array: a small name to value mapping that records what the array is
// (class, version, shape, element type) next to user annotations.
//
// # Attribute kinds
//
// System attributes are written by storage backends. A subset of them is
// read-only: user code can neither overwrite, remove nor rename them.
//
//	set := attrs.New("/c")
//	_ = set.SetSystem("CLASS", "CARRAY")   // backends only
//	_ = set.Set("units", "m/s")            // user attribute
//	set.List(attrs.User)                   // [units]
//	set.Set("CLASS", "other")              // ErrReadOnly
//
// # Persistence
//
// Marshal writes the set as a one-line codec name followed by the encoded
// document, so sets written with one codec stay readable after
// codec.Default changes. Load and Save move sets through a
// blobstore.BlobStore.
package attrs
