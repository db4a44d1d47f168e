// Package seccomp compiles declarative seccomp policies into BPF filter
// programs that can be loaded right before execve.
package seccomp

import (
	"golang.org/x/net/bpf"
)

// Filter is an assembled seccomp-bpf program ready to be loaded into the
// kernel. The zero value (nil) means no filter.
type Filter []bpf.RawInstruction
