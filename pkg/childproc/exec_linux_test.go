package childproc

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

// execRecorder scripts sysExec: each attempted path returns the configured
// errno, nil meaning the exec "succeeded" (which the real call never
// reports).
type execRecorder struct {
	results  map[string]error
	attempts []string
	argvs    [][]string
}

func (e *execRecorder) exec(path string, argv, envv []string) error {
	e.attempts = append(e.attempts, path)
	e.argvs = append(e.argvs, append([]string(nil), argv...))
	return e.results[path]
}

func withExecRecorder(t *testing.T, results map[string]error) *execRecorder {
	t.Helper()
	rec := &execRecorder{results: results}
	sysExec = rec.exec
	t.Cleanup(func() { sysExec = unix.Exec })
	return rec
}

func TestExecvpe_PathSearchOrder(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"/a/prog": unix.ENOENT,
		"/b/prog": unix.ENOENT,
		"/c/prog": nil,
	})

	err := execvpe("prog", []string{"prog"}, []string{"K=V"}, []string{"/a", "/b", "/c"})
	if err != nil {
		t.Fatalf("execvpe error: %v", err)
	}
	want := []string{"/a/prog", "/b/prog", "/c/prog"}
	if !reflect.DeepEqual(rec.attempts, want) {
		t.Errorf("attempts = %v, want %v", rec.attempts, want)
	}
}

func TestExecvpe_StickyEACCES(t *testing.T) {
	withExecRecorder(t, map[string]error{
		"/a/prog": unix.EACCES,
		"/b/prog": unix.ENOENT,
	})

	err := execvpe("prog", []string{"prog"}, []string{"K=V"}, []string{"/a", "/b"})
	if err != unix.EACCES {
		t.Fatalf("execvpe error = %v, want EACCES", err)
	}
}

func TestExecvpe_AbortOnOtherErrno(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"/a/prog": unix.EIO,
		"/b/prog": nil,
	})

	err := execvpe("prog", []string{"prog"}, []string{"K=V"}, []string{"/a", "/b"})
	if err != unix.EIO {
		t.Fatalf("execvpe error = %v, want EIO", err)
	}
	if len(rec.attempts) != 1 {
		t.Errorf("attempts = %v, want search aborted after /a/prog", rec.attempts)
	}
}

func TestExecvpe_ContinueErrnos(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"/a/prog": unix.ENOTDIR,
		"/b/prog": unix.ELOOP,
		"/c/prog": unix.ESTALE,
		"/d/prog": unix.ENODEV,
		"/e/prog": unix.ETIMEDOUT,
	})

	err := execvpe("prog", []string{"prog"}, []string{"K=V"},
		[]string{"/a", "/b", "/c", "/d", "/e"})
	if err != unix.ETIMEDOUT {
		t.Fatalf("execvpe error = %v, want last errno ETIMEDOUT", err)
	}
	if len(rec.attempts) != 5 {
		t.Errorf("attempts = %v, want all five directories tried", rec.attempts)
	}
}

func TestExecvpe_SeparatorSkipsSearch(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"sub/prog": unix.ENOENT,
	})

	err := execvpe("sub/prog", []string{"sub/prog"}, []string{"K=V"}, []string{"/a", "/b"})
	if err != unix.ENOENT {
		t.Fatalf("execvpe error = %v, want ENOENT", err)
	}
	if want := []string{"sub/prog"}; !reflect.DeepEqual(rec.attempts, want) {
		t.Errorf("attempts = %v, want %v", rec.attempts, want)
	}
}

func TestExecvpe_EmptyFile(t *testing.T) {
	rec := withExecRecorder(t, nil)

	if err := execvpe("", []string{""}, []string{"K=V"}, []string{"/a"}); err != unix.ENOENT {
		t.Fatalf("execvpe error = %v, want ENOENT", err)
	}
	if len(rec.attempts) != 0 {
		t.Errorf("attempts = %v, want none", rec.attempts)
	}
}

func TestExecvpe_NameTooLongSkipped(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"/ok/prog": nil,
	})

	long := "/" + strings.Repeat("d", unix.PathMax)
	err := execvpe("prog", []string{"prog"}, []string{"K=V"}, []string{long, "/ok"})
	if err != nil {
		t.Fatalf("execvpe error: %v", err)
	}
	if want := []string{"/ok/prog"}; !reflect.DeepEqual(rec.attempts, want) {
		t.Errorf("attempts = %v, want oversized candidate skipped", rec.attempts)
	}
}

func TestExecvpe_NameTooLongReported(t *testing.T) {
	withExecRecorder(t, nil)

	long := "/" + strings.Repeat("d", unix.PathMax)
	err := execvpe("prog", []string{"prog"}, []string{"K=V"}, []string{long})
	if err != unix.ENAMETOOLONG {
		t.Fatalf("execvpe error = %v, want ENAMETOOLONG", err)
	}
}

func TestExecvpe_TrailingSlashDir(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"/a/prog": nil,
	})

	if err := execvpe("prog", []string{"prog"}, []string{"K=V"}, []string{"/a/"}); err != nil {
		t.Fatalf("execvpe error: %v", err)
	}
	if want := []string{"/a/prog"}; !reflect.DeepEqual(rec.attempts, want) {
		t.Errorf("attempts = %v, want single separator in candidate", rec.attempts)
	}
}

func TestShellFallback_ReshapesArgv(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"/x/script": unix.ENOEXEC,
		"/bin/sh":   unix.EPERM,
	})

	argv := []string{"/x/script", "arg1", "arg2"}
	err := execvpe("/x/script", argv, []string{"K=V"}, nil)
	if err != unix.EPERM {
		t.Fatalf("execvpe error = %v, want shell exec's EPERM", err)
	}

	want := []string{"/x/script", "/bin/sh"}
	if !reflect.DeepEqual(rec.attempts, want) {
		t.Fatalf("attempts = %v, want %v", rec.attempts, want)
	}
	shellArgv := rec.argvs[1]
	if wantArgv := []string{"/bin/sh", "/x/script", "arg1", "arg2"}; !reflect.DeepEqual(shellArgv, wantArgv) {
		t.Errorf("shell argv = %v, want %v", shellArgv, wantArgv)
	}

	// the caller's argument vector keeps its original shape
	if wantArgv := []string{"/x/script", "arg1", "arg2"}; !reflect.DeepEqual(argv, wantArgv) {
		t.Errorf("caller argv mutated to %v", argv)
	}
}

func TestExecvpe_InheritEnvironment(t *testing.T) {
	rec := withExecRecorder(t, map[string]error{
		"/inherited/prog": nil,
	})
	t.Setenv("PATH", "/inherited")

	if err := execvpe("prog", []string{"prog"}, nil, nil); err != nil {
		t.Fatalf("execvpe error: %v", err)
	}
	if want := []string{"/inherited/prog"}; !reflect.DeepEqual(rec.attempts, want) {
		t.Errorf("attempts = %v, want resolution against live PATH", rec.attempts)
	}
}
