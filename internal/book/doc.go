// Package book defines the canonical book record shared by every stoneware
// component, along with the shelf vocabulary, synopsis provenance ranking and
// the quarter-step rating quantizer.
//
// Records are plain values. Optional numeric fields are pointers so an absent
// community aggregate is distinguishable from a zero one, and Clone returns a
// copy that shares no slices or pointers with the original.
package book
