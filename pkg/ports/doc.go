/*
Package ports defines the driven ports (interfaces) of the Nova workflow.

These interfaces decouple the turn workflow from concrete collaborators, so the
same engine runs against Azure services in production and scripted fakes in tests.

# Key Interfaces

  - Extractor: returns text for a document blob of a detected kind.
  - Retriever: returns ranked passages from a domain-tagged knowledge index.
  - Generator: produces text (or a structured no-answer) for a prompt.
  - SessionStore: durable, ordered, append-only session history.
  - DistributedLocker: cross-replica mutual exclusion for one session.
*/
package ports
