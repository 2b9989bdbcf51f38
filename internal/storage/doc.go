// Package storage persists the delivery audit trail.
//
// Per-room configuration does NOT live here (it is encoded in room tags, see
// package roomcfg); this store only records what was delivered where, for
// operational forensics. It is strictly best-effort from the pipeline's
// point of view.
package storage
