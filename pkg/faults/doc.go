/*
Package faults classifies failures of the external collaborators (extraction,
retrieval, generation) into retryable and permanent outcomes.

Adapters wrap transport failures into the typed errors of this package so the
workflow engine can decide, in one place, whether to retry, degrade or escalate.
*/
package faults
