package childproc

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const defaultShell = "/bin/sh"

// execute entry point, replaced in tests. unix.Exec only returns on failure.
var sysExec = unix.Exec

// execvpe is execvp with the environment passed explicitly instead of being
// inherited from the process. An unqualified file is resolved against the
// PATH entries the parent saved before launch, not against the PATH of the
// environment being installed, since that may already differ.
//
// On success the process image is replaced and the call never returns.
func execvpe(file string, argv, envv, parentPath []string) error {
	if envv == nil {
		// inherit the current environment; resolution then follows the
		// live PATH exactly like execvp would
		envv = os.Environ()
		parentPath = filepath.SplitList(os.Getenv("PATH"))
	}

	if file == "" {
		return unix.ENOENT
	}

	if strings.ContainsRune(file, '/') {
		return execWithShellFallback(file, argv, envv)
	}

	// There are 3 responses to the errno of each candidate: abort
	// immediately, continue with the next directory (especially for
	// ENOENT), or continue with a sticky errno. Per exec(3), EACCES is
	// remembered and reported only if no later directory succeeds.
	var sticky, last error
	for _, dir := range parentPath {
		if dir == "" {
			dir = "."
		}
		if len(dir)+len(file)+2 >= unix.PathMax {
			last = unix.ENAMETOOLONG
			continue
		}
		candidate := dir
		if candidate[len(candidate)-1] != '/' {
			candidate += "/"
		}
		candidate += file

		err := execWithShellFallback(candidate, argv, envv)
		switch err {
		case unix.EACCES:
			sticky = err
			last = err
		case unix.ENOENT, unix.ENOTDIR, unix.ELOOP,
			unix.ESTALE, unix.ENODEV, unix.ETIMEDOUT:
			last = err
		default:
			return err
		}
	}
	if sticky != nil {
		return sticky
	}
	if last == nil {
		last = unix.ENOENT
	}
	return last
}

// execWithShellFallback is execve except that on ENOEXEC the file is
// assumed to be a shell script without '#!' and the default shell is
// invoked to run it.
func execWithShellFallback(path string, argv, envv []string) error {
	err := sysExec(path, argv, envv)
	if err == unix.ENOEXEC {
		return execAsTraditionalShellScript(path, argv, envv)
	}
	return err
}

// execAsTraditionalShellScript re-execs through the default shell with the
// script path as its first argument. The original argument vector is left
// untouched so a failure here reports the shell exec's error against the
// caller's own argv.
func execAsTraditionalShellScript(path string, argv, envv []string) error {
	shellArgv := make([]string, 0, len(argv)+1)
	shellArgv = append(shellArgv, defaultShell, path)
	if len(argv) > 1 {
		shellArgv = append(shellArgv, argv[1:]...)
	}
	return sysExec(defaultShell, shellArgv, envv)
}
