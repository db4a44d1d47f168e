package spawn

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/criyle/go-spawn/pkg/childproc"
	"github.com/criyle/go-spawn/pkg/seccomp"
)

// helper process contract: argv[1] marks a helper invocation, and the
// handshake / fail pipes are inherited at the first two slots after stderr
const (
	helperArg         = "spawn_helper"
	helperHandshakeFd = 3
	helperFailFd      = 4
)

// Error is a launch failure reported by the child over the fail pipe. The
// errno is the one the failing stage observed in the child, surfaced as if
// the failure had happened synchronously in the parent.
type Error struct {
	Path  string
	Errno unix.Errno
}

func (e *Error) Error() string {
	return "spawn: " + e.Path + ": " + e.Errno.Error()
}

func (e *Error) Unwrap() error {
	return e.Errno
}

// Cmd describes one program launch.
type Cmd struct {
	// Path is the program to run. A path without a separator is resolved
	// against the parent's current PATH in the child.
	Path string

	// Args holds the arguments following the program name.
	Args []string

	// Env is the environment for the program; nil inherits the parent's.
	Env []string

	// Dir is the working directory for the program; empty inherits.
	Dir string

	// Stdin, Stdout and Stderr are pre-opened files for the program's
	// standard streams. A nil entry makes Start create a pipe and expose
	// the parent end on the returned Process.
	Stdin, Stdout, Stderr *os.File

	// RedirectErrorStream merges the program's stderr into stdout; Stderr
	// is ignored when set.
	RedirectErrorStream bool

	// Seccomp optionally confines the program with a filter loaded right
	// before execve.
	Seccomp seccomp.Filter

	// Helper is the executable re-executed as the spawn helper. Empty
	// means the current executable, which must call Init in main.
	Helper string
}

// Process is a successfully launched program.
type Process struct {
	Pid int

	// Pipe ends for the streams Start created; nil where Cmd supplied a
	// file.
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
	Stderr io.ReadCloser

	cmd *exec.Cmd
}

// Start launches the program and waits for the child to report the launch
// outcome. A non-nil error means the program is not running; a *Error
// carries the errno the child reported.
func (c *Cmd) Start() (*Process, error) {
	helper := c.Helper
	if helper == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		helper = exe
	}

	handshakeR, handshakeW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	failR, failW, err := os.Pipe()
	if err != nil {
		handshakeR.Close()
		handshakeW.Close()
		return nil, err
	}

	child := &childproc.Child{
		In:        [2]int{-1, -1},
		Out:       [2]int{-1, -1},
		Err:       [2]int{-1, -1},
		Fail:      [2]int{-1, helperFailFd},
		Handshake: [2]int{helperHandshakeFd, -1},
		Fds:       [3]int{-1, -1, -1},

		Mode:       childproc.ModeHelper,
		Argv:       append([]string{c.Path}, c.Args...),
		Envv:       c.Env,
		Dir:        c.Dir,
		ParentPath: filepath.SplitList(os.Getenv("PATH")),

		RedirectErrorStream: c.RedirectErrorStream,
		SendAlivePing:       true,
		Seccomp:             c.Seccomp,
	}

	// descriptors inherited by the helper; slot i lands on fd 3+i
	extra := []*os.File{handshakeR, failW}
	nextFd := helperFailFd + 1
	p := new(Process)

	// child-side ends the parent closes once the helper holds them
	childEnds := []*os.File{handshakeR, failW}
	// parent-side ends torn down if the launch fails
	parentEnds := []io.Closer{handshakeW}

	fail := func(err error) (*Process, error) {
		for _, f := range childEnds {
			f.Close()
		}
		for _, f := range parentEnds {
			f.Close()
		}
		failR.Close()
		return nil, err
	}

	if c.Stdin != nil {
		extra = append(extra, c.Stdin)
		child.Fds[0] = nextFd
		nextFd++
	} else {
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}
		extra = append(extra, r)
		child.In[0] = nextFd
		nextFd++
		p.Stdin = w
		childEnds = append(childEnds, r)
		parentEnds = append(parentEnds, w)
	}

	if c.Stdout != nil {
		extra = append(extra, c.Stdout)
		child.Fds[1] = nextFd
		nextFd++
	} else {
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}
		extra = append(extra, w)
		child.Out[1] = nextFd
		nextFd++
		p.Stdout = r
		childEnds = append(childEnds, w)
		parentEnds = append(parentEnds, r)
	}

	switch {
	case c.RedirectErrorStream:
		// the child duplicates stdout onto stderr
	case c.Stderr != nil:
		extra = append(extra, c.Stderr)
		child.Fds[2] = nextFd
		nextFd++
	default:
		r, w, err := os.Pipe()
		if err != nil {
			return fail(err)
		}
		extra = append(extra, w)
		child.Err[1] = nextFd
		nextFd++
		p.Stderr = r
		childEnds = append(childEnds, w)
		parentEnds = append(parentEnds, r)
	}

	cmd := exec.Command(helper, helperArg)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = extra

	if err := cmd.Start(); err != nil {
		return fail(err)
	}
	p.cmd = cmd
	p.Pid = cmd.Process.Pid

	// the helper owns its copies now
	for _, f := range childEnds {
		f.Close()
	}

	if err := child.WriteTo(handshakeW); err != nil {
		// the helper died before or during the handshake
		handshakeW.Close()
		failR.Close()
		p.closePipes()
		p.kill()
		return nil, &Error{Path: c.Path, Errno: unix.EPIPE}
	}
	handshakeW.Close()

	if err := p.waitLaunch(failR, c.Path); err != nil {
		p.closePipes()
		return nil, err
	}
	return p, nil
}

// waitLaunch runs the parent half of the fail pipe protocol: validate the
// alive ping, then distinguish a clean EOF (execve succeeded, close-on-exec
// shut the pipe) from an errno report. A short read is a protocol violation
// and maps to EPIPE.
func (p *Process) waitLaunch(failR *os.File, path string) error {
	defer failR.Close()

	buf := make([]byte, 4)
	if _, err := io.ReadFull(failR, buf); err != nil {
		p.kill()
		return &Error{Path: path, Errno: unix.EPIPE}
	}
	if got := int32(binary.NativeEndian.Uint32(buf)); got != childproc.ChildIsAlive {
		p.kill()
		return &Error{Path: path, Errno: unix.EPIPE}
	}

	n, err := io.ReadFull(failR, buf)
	switch {
	case n == 0 && err == io.EOF:
		// execve succeeded
		return nil
	case err == nil:
		// the child reported why it could not exec and has exited
		errno := unix.Errno(binary.NativeEndian.Uint32(buf))
		p.cmd.Wait()
		return &Error{Path: path, Errno: errno}
	default:
		p.kill()
		return &Error{Path: path, Errno: unix.EPIPE}
	}
}

// Wait reaps the program and returns its process state.
func (p *Process) Wait() (*os.ProcessState, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ProcessState, nil
	}
	if err != nil {
		return nil, err
	}
	return p.cmd.ProcessState, nil
}

// Kill sends SIGKILL to the program
func (p *Process) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *Process) closePipes() {
	for _, f := range []io.Closer{p.Stdin, p.Stdout, p.Stderr} {
		if f != nil {
			f.Close()
		}
	}
	p.Stdin, p.Stdout, p.Stderr = nil, nil, nil
}

// kill makes sure a misbehaving helper does not linger or leave a zombie
func (p *Process) kill() {
	p.cmd.Process.Kill()
	p.cmd.Wait()
}
