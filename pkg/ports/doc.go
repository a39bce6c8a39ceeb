/*
Package ports defines the driven ports (interfaces) for the colloquy engine.

These interfaces decouple the core turn-routing logic from its external
collaborators: the natural-language classifier, the action-execution layer,
state persistence, and flow-definition sources.

# Key Interfaces

  - Classifier: turns raw user text into a structured Command.
  - ActionExecutor: performs external side effects for action steps.
  - StateStore: persists one TurnState per conversation key.
  - FlowSource: supplies compiled flow definitions.
  - DistributedLocker: coordinates session access across replicas.
*/
package ports
