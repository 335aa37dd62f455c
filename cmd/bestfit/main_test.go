package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runAppWithStderr(t, args...)
	return out, err
}

func runAppWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"bestfit"}, args...))
	return stdout.String(), stderr.String(), err
}

func writeScript(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o600))
	return path
}

func TestInspect(t *testing.T) {
	out, err := runApp(t, "inspect", "--capacity", "1024", "--sink", "spew",
		"--alloc", "100", "--alloc", "200", "--alloc", "300",
		"--free", "1",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Offset: (uint32) 116")
	assert.Contains(t, out, "Payload: (uint32) 360")
	assert.Contains(t, out, "MemUsage: (uint64) 400")
}

func TestInspect_BadFreeIndex(t *testing.T) {
	_, err := runApp(t, "inspect", "--capacity", "1024", "--alloc", "10", "--free", "3")
	assert.Error(t, err)
}

func TestDumpConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "heap.toml")
	require.NoError(t, os.WriteFile(path, []byte("capacity = 2048\n"), 0o600))

	out, err := runApp(t, "dumpconfig", "--config", path, "--min-split", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "capacity = 2048")
	assert.Contains(t, out, "min_split_payload = 8")
	assert.Contains(t, out, `arena = "go"`)
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	script := `
name: cli
evict: true
check: true
steps:
  - {op: alloc, id: a, size: 300}
  - {op: alloc, id: b, size: 300}
  - {op: alloc, id: c, size: 300}
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o600))

	out, err := runApp(t, "replay", "--capacity", "1024", path)
	require.NoError(t, err)
	assert.Contains(t, out, "steps=3 allocs=3 frees=0 failures=0 evictions=1 live=2")
	assert.Contains(t, strings.ToLower(out), "in use")
}

func TestReplay_MissingArg(t *testing.T) {
	_, err := runApp(t, "replay")
	assert.Error(t, err)
}

const twoStepScript = `
name: verbose
steps:
  - {op: alloc, id: a, size: 40}
  - {op: free, id: a}
`

func TestReplay_Verbose(t *testing.T) {
	path := writeScript(t, twoStepScript)

	table := []struct {
		name  string
		args  []string
		debug bool
	}{
		{name: "after-subcommand", args: []string{"replay", "--verbose", path}, debug: true},
		{name: "before-subcommand", args: []string{"-v", "replay", path}, debug: true},
		{name: "quiet", args: []string{"replay", path}, debug: false},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			out, logs, err := runAppWithStderr(t, e.args...)
			require.NoError(t, err)
			assert.Contains(t, out, "steps=2 allocs=1 frees=1")
			assert.Contains(t, logs, "workload finished")
			assert.Equal(t, e.debug, strings.Contains(logs, "msg=allocated"))
		})
	}
}

func TestHeapFlags_OutOfRange(t *testing.T) {
	table := []struct {
		name string
		args []string
	}{
		{name: "capacity", args: []string{"dumpconfig", "--capacity", "4294968320"}},
		{name: "min-split", args: []string{"dumpconfig", "--min-split", "4294967296"}},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			out, err := runApp(t, e.args...)
			assert.ErrorContains(t, err, "does not fit in 32 bits")
			assert.Equal(t, "", out)
		})
	}

	out, err := runApp(t, "dumpconfig", "--capacity", "4294967292")
	require.NoError(t, err)
	assert.Contains(t, out, "capacity = 4294967292")
}
