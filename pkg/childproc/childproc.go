// Package childproc implements the child side of a process launch: the
// straight-line sequence a freshly created child runs between creation and
// execve, plus the pipe protocol used to report launch failure back to the
// parent.
//
// The parent observes exactly one of two outcomes on the fail pipe: EOF with
// zero bytes (execve succeeded and close-on-exec shut the write end), or one
// native-endian int32 errno followed by EOF (the child hit a failure and
// exited). The protocol relies entirely on close-on-exec for the success
// signal.
package childproc

import (
	"encoding/binary"

	"github.com/criyle/go-spawn/pkg/seccomp"
)

// Mode describes how the child relates to the parent's address space, which
// controls whether the launch sequence may mutate process-wide state before
// execve.
type Mode int

// Launch modes
const (
	// ModeFork child owns a copy of the parent's address space
	ModeFork Mode = iota + 1
	// ModeHelper child is a separate helper process (posix_spawn style)
	ModeHelper
	// ModeVfork child shares the parent's address space until execve
	ModeVfork
)

// SharedAddressSpace reports whether mutating process-wide state before
// execve could corrupt the parent.
func (m Mode) SharedAddressSpace() bool {
	return m == ModeVfork
}

// Protocol constants shared between the child and parent sides.
const (
	// FailFileno is the fixed descriptor the fail pipe is moved to in the
	// child, and the lowest descriptor swept close-on-exec (stderr + 1).
	// The fail pipe itself is swept: its close-on-exec flag is what turns
	// a successful execve into EOF on the parent side.
	FailFileno = 3

	// ChildIsAlive is written to the fail pipe before any other traffic
	// when an alive ping was requested.
	ChildIsAlive int32 = 1

	// intSize is the wire size of every fail-pipe and handshake integer
	intSize = 4

	// failureExitStatus is the status the failure tail exits with
	failureExitStatus = 255
)

// Child is the launch descriptor consumed by Run. It is fully populated and
// validated by the parent before the child runs; Run never re-validates it.
//
// Pipe pairs are in [read, write] order and -1 marks an absent end. For each
// standard stream either the pipe's child end or the corresponding Fds slot
// is set; the other is -1. An Fds slot equal to its own stream number means
// the descriptor is already in place.
type Child struct {
	In   [2]int // stdin pipe, child end In[0]
	Out  [2]int // stdout pipe, child end Out[1]
	Err  [2]int // stderr pipe, child end Err[1]
	Fail [2]int // failure reporting pipe, child writes Fail[1]

	// Handshake holds descriptor-transfer pipe ends that belong to the
	// launch machinery. Both ends are closed before execve regardless of
	// whether they were used.
	Handshake [2]int

	// Fds holds pre-placed descriptors for stdin/stdout/stderr used when
	// the matching pipe end is -1.
	Fds [3]int

	Mode Mode

	// Argv is the program path followed by its arguments. Argv[0] is the
	// path handed to program resolution.
	Argv []string

	// Envv is the environment for the new program. nil inherits the
	// current environment.
	Envv []string

	// Dir is the working directory for the new program. Empty inherits
	// the current directory.
	Dir string

	// ParentPath holds the PATH entries captured by the parent before
	// launch. Program resolution for an unqualified Argv[0] searches these
	// entries, not the PATH of the environment being installed.
	ParentPath []string

	RedirectErrorStream bool
	SendAlivePing       bool

	// Seccomp is an optional filter loaded immediately before program
	// resolution, confining the new program.
	Seccomp seccomp.Filter
}

func putInt(b []byte, v int32) {
	binary.NativeEndian.PutUint32(b, uint32(v))
}

func getInt(b []byte) int32 {
	return int32(binary.NativeEndian.Uint32(b))
}
