package build

import (
	"fmt"
	"os"
	"runtime/debug"
)

// Critical should be called if a sanity check has failed, indicating
// developer error. Critical is called with an extended message guiding the
// user to the issue tracker on Github. If the program does not panic, the
// call stack for the running goroutine is printed to help determine the
// error.
func Critical(v ...interface{}) {
	s := "Critical error: " + fmt.Sprintln(v...) + "Please submit a bug report here: " + IssuesURL + "\n"
	if Release != "testing" {
		debug.PrintStack()
		os.Stderr.WriteString(s)
	}
	if DEBUG {
		panic(s)
	}
}

// Severe should be called if a severe problem has been encountered which
// would justify ending the program. Severe will print the error to stderr
// along with a stack trace, and will panic if DEBUG has been set.
func Severe(v ...interface{}) {
	s := "Severe error: " + fmt.Sprintln(v...)
	if Release != "testing" {
		debug.PrintStack()
		os.Stderr.WriteString(s)
	}
	if DEBUG {
		panic(s)
	}
}
