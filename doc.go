/*
Package colloquy is a deterministic orchestration engine for task-oriented
dialogue. It manages a stack of interruptible flows, routes classified user
commands through a fixed conversation state machine, and suspends itself
whenever user input or an external action is required.

The engine is transport and NLU agnostic: a Classifier (supplied by the
host) turns raw utterances into structured commands, and an ActionExecutor
performs side effects. Given the same state and command, a turn always
produces the same successor state, which makes conversations persistable,
replayable, and safe to resume across processes.

# Concept

Each task the user can perform is a flow: an ordered list of steps that
collect slots, confirm values, branch, call actions, and emit messages. The
engine keeps a last-in-first-out stack of flow instances so a new intent can
interrupt the current task and return to it later. The conversational
patterns around that stack, such as corrections, digressions,
clarifications, and cancellations, are handled by the engine itself rather
than by host dialogue logic.

# Usage

Initialize the engine from a directory of YAML flow definitions, register
action implementations, and feed it classified commands:

	package main

	import (
		"context"
		"log"

		"github.com/colloquyhq/colloquy"
		"github.com/colloquyhq/colloquy/pkg/domain"
	)

	func main() {
		eng, err := colloquy.New("./flows")
		if err != nil {
			log.Fatal(err)
		}

		eng.RegisterAction("book_flight", func(ctx context.Context, slots map[string]any) (map[string]any, error) {
			return map[string]any{"booking_ref": "ZX12"}, nil
		})

		ctx := context.Background()
		state := eng.NewConversation("conv-123")

		state, result, err := eng.ProcessTurn(ctx, state, domain.IntentChange{FlowName: "book_flight"})
		if err != nil {
			log.Fatal(err)
		}
		for _, msg := range result.Messages {
			log.Println(msg.Text)
		}

		// When a turn parks in the ready-for-action phase, the host decides
		// when the side effect runs.
		if state.Phase == domain.PhaseReadyForAction {
			state, result, err = eng.Resume(ctx, state)
		}
	}

Persistence, distributed locking, an HTTP transport, and Prometheus metrics
are provided by the adapter packages; the core engine depends on none of
them.
*/
package colloquy
