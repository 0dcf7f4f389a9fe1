/*
Package ports defines the driven ports (interfaces) of the tagbridge dispatcher.

These interfaces decouple the dispatcher from the analytics SDK it fronts, the
transports that answer callers, and the storage used for session snapshots.

# Key Interfaces

  - SDK: The analytics collaborator (open, configure, log, close).
  - ResponseSink: The caller-side destination for dispatcher answers.
  - SnapshotStore: Persists inspectable copies of the active session.
*/
package ports
