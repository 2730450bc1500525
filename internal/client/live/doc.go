// Package live applies socket stream events to the client state.
//
// The Reconciler consumes decoded events in order. Events for notes or
// conversations the client does not know are ignored, and edits made by
// the current user are treated as echoes: they refresh list entries but
// never replace local values. Content and title write-back goes through
// the save pipeline so a save in flight is not overwritten.
package live
