// Command spawnrun launches a program through the spawn helper protocol and
// reports how the launch went, optionally collecting bounded output and
// confining the program with a seccomp allow list.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/criyle/go-spawn/pkg/pipe"
	"github.com/criyle/go-spawn/pkg/seccomp"
	"github.com/criyle/go-spawn/spawn"
)

var (
	env, allow                               arrayFlags
	inputFileName, outputFileName, errorFile string
	workPath                                 string
	redirect, showDetails                    bool
	outputLimit                              int64

	args []string
)

// spawn helper init
func init() {
	spawn.Init()
}

func printUsage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] <program> <args>\n", os.Args[0])
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Usage = printUsage
	flag.Var(&env, "env", "Set an environment variable (KEY=VALUE); unset inherits all")
	flag.Var(&allow, "allow", "Allow a syscall by name (enables seccomp filtering)")
	flag.StringVar(&inputFileName, "in", "", "Set input file name")
	flag.StringVar(&outputFileName, "out", "", "Set output file name (unset collects stdout)")
	flag.StringVar(&errorFile, "err", "", "Set error file name")
	flag.StringVar(&workPath, "work-path", "", "Set the work path of the program")
	flag.BoolVar(&redirect, "redirect", false, "Merge stderr into stdout")
	flag.Int64Var(&outputLimit, "ol", 64<<10, "Collected output limit (in bytes)")
	flag.BoolVar(&showDetails, "show-details", false, "Show launch details")
	flag.Parse()

	args = flag.Args()
	if len(args) == 0 {
		printUsage()
	}

	if err := run(); err != nil {
		log.Fatalln("spawnrun:", err)
	}
}

func debug(v ...any) {
	if showDetails {
		fmt.Fprintln(os.Stderr, v...)
	}
}

func run() error {
	c := spawn.Cmd{
		Path:                args[0],
		Args:                args[1:],
		Dir:                 workPath,
		RedirectErrorStream: redirect,
		Stdin:               os.Stdin,
		Stderr:              os.Stderr,
	}
	if len(env) > 0 {
		c.Env = env
	}

	if inputFileName != "" {
		f, err := os.Open(inputFileName)
		if err != nil {
			return err
		}
		defer f.Close()
		c.Stdin = f
	}

	var collected *pipe.Buffer
	if outputFileName != "" {
		f, err := os.Create(outputFileName)
		if err != nil {
			return err
		}
		defer f.Close()
		c.Stdout = f
	} else {
		b, err := pipe.NewBuffer(outputLimit)
		if err != nil {
			return err
		}
		collected = b
		c.Stdout = b.W
	}

	if errorFile != "" && !redirect {
		f, err := os.Create(errorFile)
		if err != nil {
			return err
		}
		defer f.Close()
		c.Stderr = f
	}

	if len(allow) > 0 {
		b := seccomp.Builder{Allow: allow}
		filter, err := b.Build()
		if err != nil {
			return err
		}
		c.Seccomp = filter
	}

	start := time.Now()
	p, err := c.Start()
	if collected != nil {
		// the child holds its own copy after a successful start
		collected.W.Close()
	}
	var spawnErr *spawn.Error
	if errors.As(err, &spawnErr) {
		return fmt.Errorf("launch failed: %s: errno=%d (%s)",
			spawnErr.Path, int(spawnErr.Errno), spawnErr.Errno.Error())
	}
	if err != nil {
		return err
	}
	debug("launched pid", p.Pid)

	state, err := p.Wait()
	if err != nil {
		return err
	}
	if collected != nil {
		<-collected.Done
		os.Stdout.Write(collected.Buffer.Bytes())
		if collected.Overflown() {
			fmt.Fprintln(os.Stderr, "spawnrun: output truncated at", collected.Max, "bytes")
		}
	}

	debug("exit:", state.ExitCode(), "wall:", time.Since(start))
	os.Exit(state.ExitCode())
	return nil
}
