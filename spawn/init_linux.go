package spawn

import (
	"io"
	"os"
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/criyle/go-spawn/pkg/childproc"
)

// Init makes the current binary usable as its own spawn helper. Call it at
// the start of main: it is a no-op unless the process was started by
// Cmd.Start, in which case it reads the launch descriptor from the
// handshake pipe, runs the child-side launch sequence and never returns.
func Init() {
	if len(os.Args) != 2 || os.Args[1] != helperArg {
		return
	}
	runtime.LockOSThread()

	// Read straight from the inherited descriptor. Wrapping it in an
	// os.File would hand it to a finalizer that could close it between
	// here and execve.
	child, err := childproc.ReadChild(fdReader(helperHandshakeFd))
	if err != nil {
		// Nothing safe to report on: the descriptor layout is unknown
		// if the handshake failed. The parent observes EOF on the fail
		// pipe and maps it to a protocol error.
		os.Exit(127)
	}

	childproc.Run(child)
}

// fdReader reads a raw descriptor, retrying interrupted reads
type fdReader int

func (fd fdReader) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(int(fd), p)
		if err == unix.EINTR {
			continue
		}
		if n == 0 && err == nil {
			return 0, io.EOF
		}
		return n, err
	}
}
