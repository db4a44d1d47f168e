package seccomp

import (
	"unsafe"

	libseccomp "github.com/elastic/go-seccomp-bpf"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// defines seccomp syscall parameters missing from the unix package
const (
	seccompSetModeFilter   = 1 // SECCOMP_SET_MODE_FILTER
	seccompFilterFlagTSync = 1 // SECCOMP_FILTER_FLAG_TSYNC
)

// Builder builds a filter from a syscall allow list
type Builder struct {
	Allow   []string
	Default libseccomp.Action
}

// Build compiles the builder's policy into a loadable filter.
// Default action falls back to returning EPERM for filtered syscalls.
func (b *Builder) Build() (Filter, error) {
	action := b.Default
	if action == 0 {
		action = libseccomp.ActionErrno
	}
	policy := libseccomp.Policy{
		DefaultAction: action,
		Syscalls: []libseccomp.SyscallGroup{
			{
				Action: libseccomp.ActionAllow,
				Names:  b.Allow,
			},
		},
	}
	return Compile(&policy)
}

// Compile assembles a declarative policy into kernel-ready raw instructions
func Compile(policy *libseccomp.Policy) (Filter, error) {
	insts, err := policy.Assemble()
	if err != nil {
		return nil, err
	}
	raw, err := bpf.Assemble(insts)
	if err != nil {
		return nil, err
	}
	return Filter(raw), nil
}

// SockFprog converts Filter to SockFprog for the seccomp syscall. An empty
// filter has no program representation and yields nil.
func (f Filter) SockFprog() *unix.SockFprog {
	if len(f) == 0 {
		return nil
	}
	return &unix.SockFprog{
		Len:    uint16(len(f)),
		Filter: (*unix.SockFilter)(unsafe.Pointer(&f[0])),
	}
}

// Load installs the filter for the calling process. no_new_privs is set
// first since loading a filter without it requires CAP_SYS_ADMIN.
func (f Filter) Load() error {
	fprog := f.SockFprog()
	if fprog == nil {
		return unix.EINVAL
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return err
	}
	if _, _, errno := unix.Syscall(unix.SYS_SECCOMP, seccompSetModeFilter,
		seccompFilterFlagTSync, uintptr(unsafe.Pointer(fprog))); errno != 0 {
		return errno
	}
	return nil
}
