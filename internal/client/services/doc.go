// Package services implements fetch-and-reconcile for notes and chats.
//
// Every read follows stale-while-revalidate: a non-forced read returns the
// cached snapshot immediately (Cache=true) and schedules a background
// refresh that fetches, decrypts, overwrites the cache and updates the
// shared state (Cache=false). Forced reads go to the remote directly.
//
// Concurrent refreshes of the same target share one remote call. Results for
// a note or conversation are applied to the state only while it is still the
// active target; late results for a target the user left are discarded.
//
// Only successfully decrypted values are written to the cache. Notes whose
// content cannot be decrypted are kept and marked unreadable; chat messages
// that cannot be decrypted are dropped from the page.
package services
