// Package report publishes pass reports: the text artifact written to the output
// directory and the summary printed to the terminal.
package report
