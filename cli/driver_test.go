package cli

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"gocorflags/clrhdr"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type readResult struct {
	hdr *clrhdr.Header
	err error
}

// fakeReader serves canned results and records every path it is asked for.
type fakeReader struct {
	results map[string]readResult
	calls   []string
}

func (f *fakeReader) Read(path string) (*clrhdr.Header, error) {
	f.calls = append(f.calls, path)
	r, ok := f.results[path]
	if !ok {
		return nil, errors.Wrap(clrhdr.ErrNotFound, path)
	}
	return r.hdr, r.err
}

func anyCPU() *clrhdr.Header {
	return &clrhdr.Header{
		RuntimeVersion: "v4.0.30319",
		Runtime:        clrhdr.RuntimeNet4_0,
		Architecture:   clrhdr.ArchI386,
		Attributes:     clrhdr.ILOnly,
	}
}

const anyCPUReport = "Version   : v4.0.30319\n" +
	"CLR Header: 2.5\n" +
	"PE        : PE32\n" +
	"CorFlags  : 0x1\n" +
	"ILONLY    : 1\n" +
	"32BITREQ  : 0\n" +
	"32BITPREF : 0\n" +
	"Signed    : 0\n"

func newTestDriver(reader clrhdr.Reader, cfg Config) (*Driver, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Driver{
		Reader: reader,
		Out:    out,
		Logger: newLogger(false, "text", io.Discard),
		Config: &cfg,
	}, out
}

func requireExitFailure(t *testing.T, err error) {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %v", err)
	require.Equal(t, ExitFailure, exitErr.Code)
}

func TestDriver_ReportsEachFileInOrder(t *testing.T) {
	reader := &fakeReader{results: map[string]readResult{
		"a.exe": {hdr: anyCPU()},
		"b.exe": {hdr: anyCPU()},
	}}
	d, out := newTestDriver(reader, Config{Paths: []string{"a.exe", "b.exe"}, NoLogo: true})

	require.NoError(t, d.Run())
	require.Equal(t, []string{"a.exe", "b.exe"}, reader.calls)
	require.Equal(t, anyCPUReport+"\n"+anyCPUReport+"\n", out.String())
}

func TestDriver_BannerBeforeEachFile(t *testing.T) {
	reader := &fakeReader{results: map[string]readResult{
		"a.exe": {hdr: anyCPU()},
		"b.exe": {hdr: anyCPU()},
	}}
	d, out := newTestDriver(reader, Config{Paths: []string{"a.exe", "b.exe"}})

	require.NoError(t, d.Run())
	require.Equal(t, 2, strings.Count(out.String(), "Go CorFlags Conversion Tool."))
	require.True(t, strings.HasPrefix(out.String(), "Go CorFlags Conversion Tool."))
}

func TestDriver_MissingFileStopsRun(t *testing.T) {
	reader := &fakeReader{}
	d, out := newTestDriver(reader, Config{Paths: []string{"missing.exe", "other.exe"}, NoLogo: true})

	requireExitFailure(t, d.Run())
	require.Equal(t, "error CF002 : Could not open file for reading\n", out.String())
	require.Equal(t, []string{"missing.exe"}, reader.calls)
}

func TestDriver_SecondFileInvalidAbortsBeforeThird(t *testing.T) {
	reader := &fakeReader{results: map[string]readResult{
		"a.exe":   {hdr: anyCPU()},
		"bad.exe": {err: errors.Wrap(clrhdr.ErrInvalidHeader, "image has no CLI header directory")},
		"c.exe":   {hdr: anyCPU()},
	}}
	d, out := newTestDriver(reader, Config{Paths: []string{"a.exe", "bad.exe", "c.exe"}, NoLogo: true})

	requireExitFailure(t, d.Run())
	require.Equal(t, anyCPUReport+"\n"+
		"error CF008 : The specified file does not have a valid managed header\n", out.String())
	require.Equal(t, []string{"a.exe", "bad.exe"}, reader.calls)
}

func TestDriver_NoHeaderAndNoError(t *testing.T) {
	reader := &fakeReader{results: map[string]readResult{"odd.exe": {}}}
	d, out := newTestDriver(reader, Config{Paths: []string{"odd.exe"}, NoLogo: true})

	requireExitFailure(t, d.Run())
	require.Equal(t, "error CF998 : Unknown error with no exception opening: odd.exe\n", out.String())
}

func TestDriver_UnexpectedFailure(t *testing.T) {
	reader := &fakeReader{results: map[string]readResult{
		"io.exe": {err: errors.New("input/output error")},
	}}
	d, out := newTestDriver(reader, Config{Paths: []string{"io.exe"}, NoLogo: true})

	requireExitFailure(t, d.Run())
	require.Equal(t, "error CF999 : Unknown exception: input/output error\n", out.String())
}

func TestDriver_ModificationRejected(t *testing.T) {
	reader := &fakeReader{results: map[string]readResult{"a.exe": {hdr: anyCPU()}}}
	d, out := newTestDriver(reader, Config{
		Paths:         []string{"a.exe"},
		NoLogo:        true,
		Modifications: []string{"--32bitreq=+"},
	})

	requireExitFailure(t, d.Run())
	require.Equal(t, "error : changing flags and saving the assembly is not implemented\n", out.String())
	require.NotContains(t, out.String(), "Version")
}

func TestDriver_ModificationAfterMissingFileReportsMissingFile(t *testing.T) {
	d, out := newTestDriver(&fakeReader{}, Config{
		Paths:         []string{"missing.exe"},
		NoLogo:        true,
		Modifications: []string{"--force"},
	})

	requireExitFailure(t, d.Run())
	require.Equal(t, "error CF002 : Could not open file for reading\n", out.String())
}

func TestDriver_VerboseLogsCause(t *testing.T) {
	reader := &fakeReader{results: map[string]readResult{
		"bad.exe": {err: errors.Wrap(clrhdr.ErrInvalidHeader, "bad metadata signature 0xDEADBEEF")},
	}}
	d, out := newTestDriver(reader, Config{Paths: []string{"bad.exe"}, NoLogo: true})
	logs := &bytes.Buffer{}
	d.Logger = newLogger(true, "text", logs)

	requireExitFailure(t, d.Run())
	require.Contains(t, logs.String(), "bad metadata signature 0xDEADBEEF")
	require.NotContains(t, out.String(), "DEADBEEF")
}
