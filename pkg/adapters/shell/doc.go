// Package shell runs Action steps in a persistent native interpreter.
//
// The bash backend feeds every step to one `bash --noprofile --norc` process; the
// batch backend does the same with `cmd.exe` on Windows hosts. The POSIX session is
// exported so other adapters (containers) can drive `sh` over any stdin/stdout pair.
package shell
