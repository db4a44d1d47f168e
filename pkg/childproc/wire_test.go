package childproc

import (
	"bytes"
	"reflect"
	"testing"
)

func TestHandshake_RoundTrip(t *testing.T) {
	t.Parallel()
	in := &Child{
		In:         [2]int{5, -1},
		Out:        [2]int{-1, 6},
		Err:        [2]int{-1, 7},
		Fail:       [2]int{-1, 4},
		Handshake:  [2]int{3, -1},
		Fds:        [3]int{-1, -1, -1},
		Mode:       ModeHelper,
		Argv:       []string{"/bin/echo", "hello"},
		Envv:       []string{"A=B"},
		Dir:        "/tmp",
		ParentPath: []string{"/usr/bin", "/bin"},

		RedirectErrorStream: true,
		SendAlivePing:       true,
	}

	var buf bytes.Buffer
	if err := in.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}
	out, err := ReadChild(&buf)
	if err != nil {
		t.Fatalf("ReadChild error: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestHandshake_BadMagic(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	buf.Write([]byte{0xde, 0xad, 0xbe, 0xef})
	if _, err := ReadChild(&buf); err == nil {
		t.Fatal("ReadChild accepted bad magic")
	}
}

func TestHandshake_Truncated(t *testing.T) {
	t.Parallel()
	var full bytes.Buffer
	c := &Child{Argv: []string{"/bin/true"}}
	if err := c.WriteTo(&full); err != nil {
		t.Fatalf("WriteTo error: %v", err)
	}
	trunc := bytes.NewReader(full.Bytes()[:full.Len()/2])
	if _, err := ReadChild(trunc); err == nil {
		t.Fatal("ReadChild accepted truncated bundle")
	}
}
