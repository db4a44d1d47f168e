package childproc

import (
	"errors"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// Run executes the launch sequence for c. It never returns: on success the
// process image is replaced by the target program, on failure the errno is
// written to the fail pipe and the process exits with a non-zero status
// without running any other cleanup.
func Run(c *Child) {
	// the thread that resets the signal mask must be the one that execs
	runtime.LockOSThread()

	failFd := c.Fail[1]
	err := start(c, &failFd)
	report(failFd, err)
}

// start runs stages in strict order and returns the first failure. The fail
// pipe location is updated through failFd once the pipe has been moved to
// its reserved slot.
func start(c *Child, failFd *int) error {
	// signal aliveness to the parent at the very first moment
	if c.SendAlivePing {
		if err := writeInt(*failFd, ChildIsAlive); err != nil {
			return locError(LocAlivePing, err)
		}
	}

	// Close the parent sides of the pipes. The close-on-exec sweep would
	// catch them anyway, but they must not be live when descriptors are
	// rewired below.
	if err := closeParentEnds(c); err != nil {
		return locError(LocCloseParentEnds, err)
	}

	if err := rewireStdio(c); err != nil {
		return locError(LocRewireStdio, err)
	}

	if err := moveDescriptor(c.Fail[1], FailFileno); err != nil {
		return locError(LocMoveFailPipe, err)
	}
	*failFd = FailFileno

	if err := markDescriptorsCloseOnExec(); err != nil {
		return locError(LocCloseOnExec, err)
	}

	if c.Dir != "" {
		if err := unix.Chdir(c.Dir); err != nil {
			return locError(LocChdir, err)
		}
	}

	// Reset any signals masked by the parent. Skipped in shared address
	// space mode: the mask is shared state the parent may still rely on,
	// and execve discards it anyway.
	if !c.Mode.SharedAddressSpace() {
		if err := unix.PthreadSigmask(unix.SIG_SETMASK, &unix.Sigset_t{}, nil); err != nil {
			return locError(LocSignalMask, err)
		}
	}

	if len(c.Seccomp) > 0 {
		if err := c.Seccomp.Load(); err != nil {
			return locError(LocSeccomp, err)
		}
	}

	// only returns on failure
	return locError(LocExec, execvpe(c.Argv[0], c.Argv, c.Envv, c.ParentPath))
}

// closeParentEnds closes every descriptor the launch machinery allocated
// that is not a child-side standard stream or the not-yet-relocated fail
// pipe.
func closeParentEnds(c *Child) error {
	for _, fd := range [...]int{
		c.In[1], c.Out[0], c.Err[0],
		c.Handshake[0], c.Handshake[1],
		c.Fail[0],
	} {
		if err := closeSafely(fd); err != nil {
			return err
		}
	}
	return nil
}

// rewireStdio gives the child sides of the pipes the right filenos. Note
// that In[0] may already be 0.
func rewireStdio(c *Child) error {
	src := c.In[0]
	if src == -1 {
		src = c.Fds[0]
	}
	if err := moveDescriptor(src, 0); err != nil {
		return err
	}

	src = c.Out[1]
	if src == -1 {
		src = c.Fds[1]
	}
	if err := moveDescriptor(src, 1); err != nil {
		return err
	}

	if c.RedirectErrorStream {
		if err := closeSafely(c.Err[1]); err != nil {
			return err
		}
		return restartableDup(1, 2)
	}
	src = c.Err[1]
	if src == -1 {
		src = c.Fds[2]
	}
	return moveDescriptor(src, 2)
}

// report is the single exit point for every failure: write the errno to the
// fail pipe, close it and terminate immediately. A short or failed write is
// not escalated since there is nothing left to report to.
func report(failFd int, err error) {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		errno = unix.EINVAL
	}
	var b [intSize]byte
	putInt(b[:], int32(errno))
	WriteFully(failFd, b[:])
	unix.Close(failFd)
	syscall.Exit(failureExitStatus)
}
