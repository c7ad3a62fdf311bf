package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/adapters/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Run(t *testing.T) {
	skipOnWindows(t)

	runner := process.NewRunner()
	runner.Register("echo", "sh", "-c", `echo "$0 $1"`)

	t.Run("Executes Registered Command", func(t *testing.T) {
		out, err := runner.Run(context.Background(), "echo", "hola", "mundo")
		require.NoError(t, err)
		assert.Equal(t, "hola mundo\n", string(out))
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := runner.Run(context.Background(), "rm")
		assert.ErrorIs(t, err, process.ErrNotRegistered)
	})

	t.Run("Reports Stderr On Failure", func(t *testing.T) {
		runner.Register("broken", "sh", "-c", "echo boom >&2; exit 3")
		_, err := runner.Run(context.Background(), "broken")
		var exitErr *process.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, "boom", exitErr.Stderr)
	})

	t.Run("Honours Context", func(t *testing.T) {
		runner.Register("slow", "sh", "-c", "sleep 5")
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := runner.Run(ctx, "slow")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLoadCommands(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
commands:
  - name: greet
    command: sh
    args: ["-c", "echo $GREETING"]
    env:
      GREETING: buenas
  - name: incomplete
`), 0o600))

	commands, err := process.LoadCommands(path)
	require.NoError(t, err)
	require.Len(t, commands, 1)

	runner := process.NewRunner(process.WithCommands(commands))
	assert.Equal(t, []string{"greet"}, runner.Registered())

	out, err := runner.Run(context.Background(), "greet")
	require.NoError(t, err)
	assert.Equal(t, "buenas\n", string(out))

	missing, err := process.LoadCommands(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
