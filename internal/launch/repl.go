package launch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GriffinCanCode/satchel/internal/modules"
	"github.com/dop251/goja"
	"github.com/mattn/go-isatty"
)

const (
	prompt         = "> "
	continuePrompt = "... "
)

// Banner is printed when an interactive session starts on a terminal
var Banner = "satchel interactive session (JavaScript). process.exit() or EOF to leave."

// isTerminal reports whether r is an interactive terminal
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Interact reads statements from stdin and evaluates them. On a terminal it
// prompts and echoes results; otherwise it runs silently and stops at the
// first error, like a script fed through a pipe.
func (l *Launcher) Interact(ctx context.Context) int {
	tty := isTerminal(l.Stdin)
	if tty {
		fmt.Fprintln(l.stderr(), Banner)
	}

	scanner := bufio.NewScanner(l.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var pending strings.Builder
	showPrompt := func() {
		if !tty {
			return
		}
		if pending.Len() == 0 {
			fmt.Fprint(l.stderr(), prompt)
		} else {
			fmt.Fprint(l.stderr(), continuePrompt)
		}
	}

	for showPrompt(); scanner.Scan(); showPrompt() {
		if ctx.Err() != nil {
			return ExitFailure
		}

		pending.WriteString(scanner.Text())
		pending.WriteByte('\n')
		src := pending.String()
		if incomplete(src) {
			continue
		}
		pending.Reset()

		if code, done := l.evalLine(ctx, src, tty); done {
			return code
		}
	}

	if pending.Len() > 0 {
		if code, done := l.evalLine(ctx, pending.String(), tty); done {
			return code
		}
	}
	if tty {
		fmt.Fprintln(l.stderr())
	}
	return ExitOK
}

// evalLine evaluates one complete statement. done is true when the session
// must end with code.
func (l *Launcher) evalLine(ctx context.Context, src string, tty bool) (code int, done bool) {
	v, err := l.Importer.Eval(ctx, "<stdin>", src)
	if err != nil {
		if code, ok := modules.ExitRequested(err); ok {
			return code, true
		}
		fmt.Fprintln(l.stderr(), err)
		if !tty {
			return ExitFailure, true
		}
		return 0, false
	}

	if tty && v != nil && !goja.IsUndefined(v) {
		fmt.Fprintln(l.Stdout, v.String())
	}
	return 0, false
}

// incomplete reports whether src only fails to parse because it ends early
func incomplete(src string) bool {
	_, err := goja.Compile("<stdin>", src, false)
	return err != nil && strings.Contains(err.Error(), "Unexpected end of input")
}
