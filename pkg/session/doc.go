/*
Package session implements SessionMemory orchestration.

It serializes turns per session (one in-flight turn per session) with a local,
context-aware lock and, optionally, a distributed lock shared across replicas,
and delegates durable storage to a ports.SessionStore.
*/
package session
