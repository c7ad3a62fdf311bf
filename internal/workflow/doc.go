/*
Package workflow turns one user turn into one committed reply.

The Engine drives an explicit state machine:

	start -> guardrail -> tool -> orchestrator -> terminal -> committed
	                 |                  |
	                 |                  +-> specialist -> redactor -> terminal
	                 +-> terminal (declared intent)
	                 +-> rejected (out of scope, audited)

Every stage can fail into the failed state. Nodes compute a result and hand it
back; only the engine talks to SessionMemory, and only once, at the end of the
turn. External calls go through the engine so that retries, per-call timeouts
and the turn deadline are enforced in one place.
*/
package workflow
