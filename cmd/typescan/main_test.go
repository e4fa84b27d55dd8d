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

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, src := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(src), 0o644))
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLI_QueryAndExport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	db := filepath.Join(dir, "runs.db")
	cfg := filepath.Join(dir, "absent.yaml")
	writeTree(t, src, map[string]string{
		"zoo/base/Animal.go": "package base\n\ntype Animal interface {\n\tSpeak() string\n}\n",
		"zoo/mock/Dog.go":    "package mock\n\n// @Canine\ntype Dog struct{}\n\nfunc (Dog) Speak() string { return \"woof\" }\n",
		"zoo/mock/Rock.go":   "package mock\n\ntype Rock struct{}\n",
	})

	out, _, err := run(t, "--config", cfg, "--path", src, "--db", db, "--export", "marked", "zoo.mock.Canine", "zoo.mock")
	require.NoError(t, err)
	assert.Equal(t, "zoo.mock.Dog\tfile://"+filepath.ToSlash(filepath.Join(src, "zoo", "mock", "Dog.go"))+"\n", out)

	out, _, err = run(t, "--config", cfg, "--path", src, "assignable", "zoo.base.Animal", "zoo")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "zoo.base.Animal\t"))
	assert.True(t, strings.HasPrefix(lines[1], "zoo.mock.Dog\t"))

	out, _, err = run(t, "--config", cfg, "--db", db, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "#1\t")
	assert.Contains(t, out, "marked zoo.mock.Canine")
	assert.Contains(t, out, "1 matches")

	out, _, err = run(t, "--config", cfg, "--db", db, "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Run #1: marked zoo.mock.Canine in zoo.mock")
	assert.Contains(t, out, "zoo.mock.Dog\tstruct\t")
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "absent.yaml")

	_, _, err := run(t, "--config", cfg, "marked", "zoo.mock.Canine")
	assert.Error(t, err, "a namespace is required")

	_, _, err = run(t, "--config", cfg, "--log-level", "loud", "marked", "x", "zoo")
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = run(t, "--config", cfg, "--db", filepath.Join(dir, "runs.db"), "show", "seven")
	assert.ErrorContains(t, err, "invalid run id")
}
