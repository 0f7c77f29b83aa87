/*
Package ports defines the driven ports (interfaces) of the CIder engine.

These interfaces decouple orchestration from the way steps are actually executed,
allowing the same executor to drive a local interpreter, a container, or an
in-memory double.

# Key Interfaces

  - Backend: Starts one Session per Action for a given execution strategy.
  - Session: A persistent interpreter that runs the Action's steps in order and
    is torn down exactly once.
*/
package ports
