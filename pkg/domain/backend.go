package domain

import (
	"fmt"
	"strings"
)

// BackendKind identifies the execution strategy of an Action.
type BackendKind string

const (
	// BackendBash runs steps in a persistent bash process.
	BackendBash BackendKind = "bash"
	// BackendBatch runs steps in a persistent Windows command interpreter.
	BackendBatch BackendKind = "batch"
	// BackendDocker runs steps inside a container created for the Action.
	BackendDocker BackendKind = "docker"
)

// DefaultImage is used by the container backend when no image is configured.
const DefaultImage = "alpine:latest"

// ParseBackend maps a configured backend value to its BackendKind.
// Matching is case-insensitive; "bat" is an alias of "batch".
func ParseBackend(value string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "bash":
		return BackendBash, nil
	case "batch", "bat":
		return BackendBatch, nil
	case "docker":
		return BackendDocker, nil
	default:
		return "", fmt.Errorf("unsupported backend %q (expected bash, batch, bat or docker)", value)
	}
}

// IsContainer reports whether the backend runs steps inside a container.
func (k BackendKind) IsContainer() bool {
	return k == BackendDocker
}
