package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/GriffinCanCode/satchel/internal/config"
	"github.com/GriffinCanCode/satchel/internal/logging"
	"github.com/GriffinCanCode/satchel/internal/modules"
	"go.uber.org/zap"
)

// Exit statuses set by the bootstrap
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitResolution = 70
	ExitExtraction = 74
)

// State is the dispatch decision for a run
type State string

const (
	DispatchCallable    State = "callable"
	DispatchInteractive State = "interactive"
)

// Decide picks the dispatch state for cfg
func Decide(cfg config.Effective) State {
	if cfg.Interpreter || cfg.EntryPoint == "" {
		return DispatchInteractive
	}
	return DispatchCallable
}

// Launcher dispatches to an entry point or an interactive session
type Launcher struct {
	Importer *modules.Importer
	Logger   *logging.Logger

	// Args are the program arguments without the program name
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a launcher using the process stdio
func New(imp *modules.Importer, logger *logging.Logger, args []string) *Launcher {
	return &Launcher{
		Importer: imp,
		Logger:   logging.Or(logger),
		Args:     args,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

// Launch runs cfg's entry point and returns the process exit status
func (l *Launcher) Launch(ctx context.Context, cfg config.Effective) int {
	state := Decide(cfg)
	logging.Or(l.Logger).Debug("dispatching", zap.String("state", string(state)), zap.String("entry_point", cfg.EntryPoint))

	switch state {
	case DispatchCallable:
		return l.Dispatch(ctx, cfg.EntryPoint)
	default:
		if len(l.Args) > 0 {
			return l.RunScript(ctx, l.Args[0], l.Args[1:])
		}
		return l.Interact(ctx)
	}
}

// Dispatch resolves ref and calls it with the launcher's arguments
func (l *Launcher) Dispatch(ctx context.Context, ref string) int {
	log := logging.Or(l.Logger)

	target, err := l.Importer.Resolve(ref)
	if err != nil {
		log.Debug("entry point resolution failed", zap.String("entry_point", ref), zap.Error(err))
		fmt.Fprintf(l.stderr(), "satchel: %v\n", err)
		return ExitResolution
	}

	code, err := l.Importer.Call(ctx, target, l.Args)
	return l.report(code, err)
}

// RunScript executes a script file as the main program
func (l *Launcher) RunScript(ctx context.Context, path string, args []string) int {
	code, err := l.Importer.RunScript(ctx, path, args)
	return l.report(code, err)
}

// report prints an unexpected failure and returns the final status
func (l *Launcher) report(code int, err error) int {
	if err == nil {
		return code
	}

	var exit *modules.ExitError
	switch {
	case errors.As(err, &exit):
		return code
	case errors.Is(err, modules.ErrNotCallable):
		fmt.Fprintf(l.stderr(), "satchel: %v\n", err)
		return ExitResolution
	}

	fmt.Fprintf(l.stderr(), "%v\n", err)
	if code == ExitOK {
		code = ExitFailure
	}
	return code
}

func (l *Launcher) stderr() io.Writer {
	if l.Stderr == nil {
		return os.Stderr
	}
	return l.Stderr
}
