/*
Package domain contains the core domain models for the colloquy engine.

It defines the entities of the dialogue state machine: flow and step
definitions, the flow-instance stack, the per-conversation TurnState, the
classified command union, and the pending-task suspension signal. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Flow/Step: a static, validated multi-step task definition.
  - FlowInstance: one running or paused invocation of a flow, with its own
    id and slot storage.
  - TurnState: the full per-conversation state carried between turns.
  - Command: the closed union of classifier outputs consumed by the router.
  - PendingTask: the single suspension signal emitted when the engine needs
    new external input.
*/
package domain
