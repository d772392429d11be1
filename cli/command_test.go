package cli

import (
	"bytes"
	"debug/pe"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gocorflags/clrhdr"
	"gocorflags/clrhdr/clrtest"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(args, clrhdr.FileReader{}, out, errOut)
	return out.String(), errOut.String(), err
}

func TestExecute_NoArgumentsPrintsHelp(t *testing.T) {
	reader := &fakeReader{}
	out := &bytes.Buffer{}

	err := Execute(nil, reader, out, &bytes.Buffer{})
	require.NoError(t, err)
	require.Contains(t, out.String(), "Go CorFlags Conversion Tool.")
	require.Contains(t, out.String(), "Usage: gocorflags [options] <assembly>...")
	require.Contains(t, out.String(), "--nologo")
	require.Empty(t, reader.calls)
}

func TestExecute_HelpFlag(t *testing.T) {
	out, _, err := execute(t, "-h")
	require.NoError(t, err)
	require.Contains(t, out, "Usage:")
}

func TestExecute_FlagsWithoutFiles(t *testing.T) {
	_, _, err := execute(t, "--nologo")
	requireExitFailure(t, err)
	require.Equal(t, "no input files specified", err.Error())
}

func TestExecute_UnknownFlag(t *testing.T) {
	_, _, err := execute(t, "--bogus", "a.exe")
	requireExitFailure(t, err)
	require.Contains(t, err.Error(), "bogus")
}

func TestExecute_InvalidToggleValue(t *testing.T) {
	_, _, err := execute(t, "--32bitreq=yes", "a.exe")
	requireExitFailure(t, err)
	require.Contains(t, err.Error(), "must be '+' or '-'")
}

func TestExecute_InvalidLogFormat(t *testing.T) {
	_, _, err := execute(t, "--log-format=xml", "a.exe")
	requireExitFailure(t, err)
	require.Contains(t, err.Error(), "log-format")
}

func TestExecute_ReportsImages(t *testing.T) {
	x86 := clrtest.WriteTemp(t, "x86.exe", clrtest.Image{Flags: 0x3})
	x64 := clrtest.WriteTemp(t, "x64.exe", clrtest.Image{PE32Plus: true, Machine: pe.IMAGE_FILE_MACHINE_AMD64, Flags: 0x1})

	out, _, err := execute(t, "--nologo", "--info", x86, x64)
	require.NoError(t, err)

	reports := strings.Split(strings.TrimSuffix(out, "\n\n"), "\n\n")
	require.Len(t, reports, 2)
	require.Contains(t, reports[0], "PE        : PE32\n")
	require.Contains(t, reports[0], "CorFlags  : 0x3\n")
	require.Contains(t, reports[0], "32BITREQ  : 1\n")
	require.Contains(t, reports[1], "PE        : PE32+\n")
	require.Contains(t, reports[1], "CorFlags  : 0x1\n")
	require.Contains(t, reports[1], "32BITREQ  : 0")
}

func TestExecute_MissingFile(t *testing.T) {
	out, _, err := execute(t, "--nologo", filepath.Join(t.TempDir(), "nope.exe"))
	requireExitFailure(t, err)
	require.Equal(t, "error CF002 : Could not open file for reading\n", out)
}

func TestExecute_NativeImage(t *testing.T) {
	native := clrtest.WriteTemp(t, "native.exe", clrtest.Image{Native: true})

	out, errOut, err := execute(t, "--nologo", "-v", native)
	requireExitFailure(t, err)
	require.Equal(t, "error CF008 : The specified file does not have a valid managed header\n", out)
	require.Contains(t, errOut, "no CLI header directory")
}

func TestExecute_ModificationRejected(t *testing.T) {
	img := clrtest.WriteTemp(t, "a.exe", clrtest.Image{Flags: 0x1})

	out, _, err := execute(t, "--nologo", "--32bitpref=+", img)
	requireExitFailure(t, err)
	require.Equal(t, "error : changing flags and saving the assembly is not implemented\n", out)
}

func TestExecute_JSONDiagnostics(t *testing.T) {
	img := clrtest.WriteTemp(t, "a.exe", clrtest.Image{AssemblyVersion: [4]uint16{5, 6, 7, 8}})

	_, errOut, err := execute(t, "--nologo", "--verbose", "--log-format=json", img)
	require.NoError(t, err)
	require.Contains(t, errOut, `"assembly_version":"5.6.7.8"`)
}
