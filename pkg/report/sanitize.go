package report

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// DefaultMaxStreamSize caps the bytes of one captured stream kept in a log.
	DefaultMaxStreamSize = 1 << 20
	// EnvMaxStreamSize is the environment variable to override the default
	EnvMaxStreamSize = "CIDER_MAX_OUTPUT_SIZE"
)

// ansiSequence matches CSI and OSC escape sequences emitted by coloured tools.
var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

// Sanitize prepares captured step output for logs and terminals:
// escape sequences and control characters other than newline and tab are dropped,
// invalid UTF-8 is replaced, CRLF becomes LF and oversized output keeps its tail.
func Sanitize(output string) string {
	if limit := maxStreamSize(); len(output) > limit {
		dropped := len(output) - limit
		output = fmt.Sprintf("[... %d bytes truncated]\n", dropped) + output[dropped:]
	}

	output = strings.ToValidUTF8(output, "�")
	output = ansiSequence.ReplaceAllString(output, "")
	output = strings.ReplaceAll(output, "\r\n", "\n")

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range output {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return output
	}

	var b strings.Builder
	b.Grow(len(output))
	for _, r := range output {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t'
}

func maxStreamSize() int {
	if val := os.Getenv(EnvMaxStreamSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxStreamSize
}
