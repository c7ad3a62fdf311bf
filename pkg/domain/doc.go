/*
Package domain contains the core models of the Nova turn-processing workflow.

It defines the conversational entities (Session, Turn, HiddenTag), the per-turn
accumulator (WorkingMemory), the routing outcomes produced by the workflow nodes
and the structured result returned to callers. The package has no I/O and no
dependency on persistence or transport.

# Key Entities

  - Session: identity, one-time domain classification and the ordered turn history.
  - Turn: one persisted exchange (user text, reply, attachment references, hidden tags).
  - HiddenTag: content-addressed reference to previously extracted document text.
  - WorkingMemory: scoped accumulator owned by the engine for the duration of one turn.
  - RoutingDecision: either a direct answer or a delegation to a domain specialist.
  - TurnResult: the status, final text or typed error surfaced to the application layer.
*/
package domain
