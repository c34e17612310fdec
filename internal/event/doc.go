// Package event defines the campus event record and its mapping from remote
// documents.
//
// Remote documents are opaque field mappings. Every document maps to exactly
// one Event; absent or non-string fields take the defaults below, so no
// document is ever rejected:
//
//	title       -> "Event"
//	time        -> "18:00"
//	place       -> "Student Union"
//	description -> "No description"
//
// Event identity is local only. The ID is a surrogate assigned by the local
// store on insert and carries no remote counterpart; every sync cycle assigns
// fresh ids.
package event
