/*
Package newbackend is Nova, a conversational assistant for legal and financial
questions over user documents.

Each user turn (a query plus optional attachments) runs through a fixed
workflow: a one-time domain admission gate, document extraction with
content-addressed memory, an orchestrator that answers directly or delegates,
a retrieval-augmented specialist, and a final redaction pass. The turn is
committed to the session history in a single atomic write.

# Concept

Nova keeps the language model, the knowledge index and the document readers
behind narrow ports (Generator, Retriever, Extractor) so the host decides the
providers. Sessions are persisted through a SessionStore; memory, file, Redis
and SQLite implementations ship with the module.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/jorge-rr00/newbackend"
	)

	func main() {
		nova, err := newbackend.New(
			newbackend.WithGenerator(gen),
			newbackend.WithRetriever(index),
			newbackend.WithExtractor(reader),
		)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		s, _ := nova.CreateSession(ctx)
		res := nova.ProcessTurn(ctx, s.ID, "Necesito ayuda financiera", nil)
		if !res.OK() {
			fmt.Println(res.Error.Kind, res.Error.Message)
			return
		}
		fmt.Println(res.Text)
	}

Failed turns carry a stable error kind: GUARDRAIL_REJECTED,
CLASSIFICATION_UNAVAILABLE, NO_USABLE_INPUT, TURN_TIMEOUT,
PROVIDER_UNAVAILABLE or INTERNAL.
*/
package newbackend
