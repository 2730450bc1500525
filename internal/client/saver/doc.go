// Package saver implements the debounced save pipeline for open notes.
//
// Each open note has two tracks, title and content, that move through
// Synced → Dirty → Saving → Synced (or Failed). Edits are applied to the
// view state immediately and committed after a quiet period. Commits for a
// note are serialized by a per-note lock held in a Registry, and the same
// lock gates write-back of remote values so a save in flight is never
// overwritten by an older server copy.
package saver
