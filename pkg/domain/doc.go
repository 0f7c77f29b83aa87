/*
Package domain contains the core domain models of the CIder execution engine.

It defines the entities produced by configuration resolution and consumed by the
runtime, such as Actions, Pipelines and their results. This package is kept pure and
free of external dependencies like I/O or process management, following Hexagonal
Architecture principles.

# Key Entities

  - EffectiveConfig: The fully resolved shareable settings of a Pipeline or Action.
  - Action: An ordered list of ManualSteps executed in a single backend session.
  - Pipeline: An ordered group of Actions.
  - RunResult: The outcome of one Action (status, per-step output, duration).
  - Report: The aggregate of one orchestration pass.
*/
package domain
