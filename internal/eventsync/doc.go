// Package eventsync keeps the local event cache in step with the remote
// event collection.
//
// One sync cycle:
//  1. Fetch the full remote snapshot.
//  2. Map every document to an Event, filling defaults. No document is
//     rejected.
//  3. Replace the local table with the mapped records in one transaction,
//     recording the run alongside.
//
// If the fetch or the replace fails, the local table and the Events stream
// are untouched.
//
// Concurrent Sync or Refresh calls share a single in-flight cycle: callers
// that arrive while a cycle runs wait for it and receive its result. Calls
// that do not overlap each run their own cycle.
//
// Refresh is the fire-and-forget form used by presentation code. It logs
// failures and returns nothing; there is no retry.
package eventsync
