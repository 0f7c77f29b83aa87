/*
Package observability provides tools for monitoring the CIder engine.

Metrics counts passes, actions and steps through domain.LifecycleHooks and serves
them, next to a health probe, over HTTP. LoggingHooks traces the same events
at debug level.
*/
package observability
