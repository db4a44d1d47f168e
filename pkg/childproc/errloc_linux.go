package childproc

// Location identifies the launch stage that observed a failure.
type Location int

// Launch stages in execution order
const (
	LocAlivePing Location = iota + 1
	LocCloseParentEnds
	LocRewireStdio
	LocMoveFailPipe
	LocCloseOnExec
	LocChdir
	LocSignalMask
	LocSeccomp
	LocExec
)

var locToString = []string{
	"unknown",
	"alive ping",
	"close parent ends",
	"rewire stdio",
	"move fail pipe",
	"close-on-exec sweep",
	"chdir",
	"signal mask",
	"seccomp",
	"exec",
}

func (l Location) String() string {
	if l >= 1 && int(l) < len(locToString) {
		return locToString[l]
	}
	return "unknown"
}

// Error attributes a launch failure to the stage that observed it. The errno
// sent over the fail pipe is recovered from the wrapped error.
type Error struct {
	Err      error
	Location Location
}

func (e *Error) Error() string {
	return e.Location.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// locError wraps err with its stage, passing nil through untouched
func locError(loc Location, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Err: err, Location: loc}
}
