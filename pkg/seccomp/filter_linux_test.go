package seccomp

import (
	"testing"

	libseccomp "github.com/elastic/go-seccomp-bpf"
	"golang.org/x/sys/unix"
)

func TestBuilder_Build(t *testing.T) {
	t.Parallel()
	b := Builder{
		Allow: []string{"read", "write", "execve", "exit_group"},
	}
	filter, err := b.Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(filter) == 0 {
		t.Fatal("Build returned empty filter")
	}
	prog := filter.SockFprog()
	if int(prog.Len) != len(filter) {
		t.Errorf("SockFprog len = %d, want %d", prog.Len, len(filter))
	}
}

func TestBuilder_BadSyscallName(t *testing.T) {
	t.Parallel()
	b := Builder{
		Allow: []string{"not_a_syscall_name"},
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("Build succeeded with invalid syscall name")
	}
}

func TestCompile_DefaultAction(t *testing.T) {
	t.Parallel()
	// the policy contract requires at least one syscall group
	policy := libseccomp.Policy{
		DefaultAction: libseccomp.ActionAllow,
		Syscalls: []libseccomp.SyscallGroup{
			{
				Action: libseccomp.ActionAllow,
				Names:  []string{"sched_yield"},
			},
		},
	}
	filter, err := Compile(&policy)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if len(filter) == 0 {
		t.Fatal("Compile returned empty filter")
	}
}

func TestCompile_EmptySyscalls(t *testing.T) {
	t.Parallel()
	policy := libseccomp.Policy{
		DefaultAction: libseccomp.ActionAllow,
	}
	if _, err := Compile(&policy); err == nil {
		t.Fatal("Compile succeeded with no syscall groups")
	}
}

func TestFilter_EmptySockFprog(t *testing.T) {
	t.Parallel()
	if prog := (Filter)(nil).SockFprog(); prog != nil {
		t.Fatalf("SockFprog on empty filter = %v, want nil", prog)
	}
	if err := (Filter)(nil).Load(); err != unix.EINVAL {
		t.Fatalf("Load on empty filter = %v, want EINVAL", err)
	}
}
