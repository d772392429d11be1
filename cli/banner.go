package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
)

const (
	toolName    = "gocorflags"
	toolVersion = "1.0.0"
)

var (
	bannerColor = color.New(color.Bold)
	errorColor  = color.New(color.FgHiRed)
)

func printBanner(w io.Writer) {
	_, _ = bannerColor.Fprintf(w, "Go CorFlags Conversion Tool.  Version  %s\n", toolVersion)
	_, _ = fmt.Fprintln(w, "Reports the CLR header flags of managed executables.")
	_, _ = fmt.Fprintln(w)
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, "Usage: %s [options] <assembly>...\n", toolName)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Options:")
	_, _ = fmt.Fprint(w, flags.FlagUsages())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "PE and 32BITREQ combine to give the assembly type:")
	_, _ = fmt.Fprintln(w, "  anycpu: PE = PE32  and  32BITREQ = 0")
	_, _ = fmt.Fprintln(w, "     x86: PE = PE32  and  32BITREQ = 1")
	_, _ = fmt.Fprintln(w, "  64-bit: PE = PE32+ and  32BITREQ = 0")
}
