//go:build linux || darwin

package launch

import (
	"bytes"
	"context"
	"testing"

	"github.com/GriffinCanCode/satchel/internal/modules"
	"github.com/GriffinCanCode/satchel/internal/sitepath"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractOnTerminal(t *testing.T) {
	ptmx, tty, err := pty.Open()
	require.NoError(t, err)
	defer ptmx.Close()
	defer tty.Close()

	var stdout, stderr bytes.Buffer
	l := &Launcher{
		Importer: modules.NewImporter(modules.Options{Path: sitepath.New(nil), Stdout: &stdout, Stderr: &stderr}),
		Stdin:    tty,
		Stdout:   &stdout,
		Stderr:   &stderr,
	}
	require.True(t, isTerminal(tty))

	_, err = ptmx.Write([]byte("1 + 2\nfunction f() {\nreturn 'ok';\n}\nf()\nnope()\nprocess.exit(0)\n"))
	require.NoError(t, err)

	code := l.Interact(context.Background())

	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "3\nok\n", stdout.String())
	assert.Contains(t, stderr.String(), Banner)
	assert.Contains(t, stderr.String(), prompt)
	assert.Contains(t, stderr.String(), continuePrompt)
	assert.Contains(t, stderr.String(), "nope", "errors are reported and the session continues")
}
