package childproc

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// fdDir is the per-process directory listing open descriptors
const fdDir = "/proc/self/fd"

// sweeper marks every open descriptor numbered from and above close-on-exec.
// Both implementations satisfy the same postcondition: after a successful
// sweep no descriptor >= from survives an execve.
type sweeper interface {
	sweep(from int) error
}

// procSweeper enumerates the open-descriptor directory and marks each
// numeric entry. The directory stream's own descriptor shows up in the
// listing and gets marked too, which is harmless since it is closed before
// execve.
type procSweeper struct {
	dir string
}

func (p procSweeper) sweep(from int) error {
	f, err := os.Open(p.dir)
	if err != nil {
		return err
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name[0] < '0' || name[0] > '9' {
			continue
		}
		fd, err := strconv.Atoi(name)
		if err != nil || fd < from {
			continue
		}
		if err := markCloseOnExec(fd); err != nil {
			return err
		}
	}
	return nil
}

// maxScanFd bounds the fallback sweep when the descriptor-table limit is
// unlimited or too large to convert to int
const maxScanFd = 1 << 20

// scanLimit converts the soft RLIMIT_NOFILE value to a scan bound. The raw
// value is unsigned and may be RLIM_INFINITY, so converting it directly
// would wrap on 32-bit builds and skip the sweep entirely.
func scanLimit(cur uint64) int {
	if cur > maxScanFd {
		return maxScanFd
	}
	return int(cur)
}

// scanSweeper linearly probes every possible descriptor number up to the
// process's descriptor-table limit. Unused slots report EBADF, which is
// expected; any other error is fatal.
type scanSweeper struct{}

func (scanSweeper) sweep(from int) error {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return err
	}
	limit := scanLimit(lim.Cur)
	for fd := from; fd < limit; fd++ {
		if err := markCloseOnExec(fd); err != nil && err != unix.EBADF {
			return err
		}
	}
	return nil
}

// markDescriptorsCloseOnExec quarantines every descriptor above stderr,
// fail pipe included, so nothing leaks into the new program image. The
// directory enumeration is preferred; the scan runs if it fails for any
// reason.
func markDescriptorsCloseOnExec() error {
	if err := (procSweeper{dir: fdDir}).sweep(FailFileno); err == nil {
		return nil
	}
	return scanSweeper{}.sweep(FailFileno)
}
