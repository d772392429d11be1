package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"gocorflags/cli"
	"gocorflags/clrhdr/clrtest"
)

func TestRun_NoArguments(t *testing.T) {
	out := &bytes.Buffer{}

	err := run([]string{}, out, &bytes.Buffer{})
	require.NoError(t, err, "run() with no arguments is a help request")
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_MissingFile(t *testing.T) {
	out := &bytes.Buffer{}

	err := run([]string{"--nologo", filepath.Join(t.TempDir(), "missing.dll")}, out, &bytes.Buffer{})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr), "expected *cli.ExitError, got %v", err)
	require.Equal(t, cli.ExitFailure, exitErr.Code)
	require.Empty(t, exitErr.Message, "the error line is already on stdout")
	require.Contains(t, out.String(), "error CF002 : Could not open file for reading")
}

func TestRun_ReportsImage(t *testing.T) {
	path := clrtest.WriteTemp(t, "signed.dll", clrtest.Image{Flags: 0x9, RuntimeVersion: "v1.1.4322"})
	out := &bytes.Buffer{}

	err := run([]string{"--nologo", path}, out, &bytes.Buffer{})
	require.NoError(t, err)
	require.Contains(t, out.String(), "CLR Header: 2.0\n")
	require.Contains(t, out.String(), "Signed    : 1\n")
}
