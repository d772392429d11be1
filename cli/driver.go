package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"gocorflags/clrhdr"
	"gocorflags/corflags"
)

// Driver inspects the configured paths one at a time, in order. The first
// failure is reported and ends the run.
type Driver struct {
	Reader clrhdr.Reader
	Out    io.Writer
	Logger *slog.Logger
	Config *Config
}

// Run returns nil when every path was reported, or an *ExitError once a
// path fails. The error line has already been written to Out by then.
func (d *Driver) Run() error {
	for _, path := range d.Config.Paths {
		if !d.Config.NoLogo {
			printBanner(d.Out)
		}
		if err := d.inspect(path); err != nil {
			d.Logger.Debug("Inspection failed.", "path", path, "error", err.Error())
			_, _ = fmt.Fprintln(d.Out, errorColor.Sprint(corflags.Line(err)))
			return &ExitError{Code: ExitFailure}
		}
	}
	return nil
}

func (d *Driver) inspect(path string) error {
	hdr, err := d.Reader.Read(path)
	if err != nil {
		return err
	}
	if hdr == nil {
		return corflags.UnreadableWithNoDiagnostic(path)
	}
	d.Logger.Debug("Header read.",
		"path", path,
		"machine", fmt.Sprintf("0x%04X", hdr.Machine),
		"architecture", hdr.Architecture,
		"runtime", hdr.Runtime,
		"cli_header", fmt.Sprintf("%d.%d", hdr.CLRMajor, hdr.CLRMinor),
		"assembly_version", hdr.AssemblyVersion,
	)

	record := corflags.Decode(hdr)
	if d.Config.Modify() {
		return errors.WithMessage(corflags.ErrModificationUnsupported, strings.Join(d.Config.Modifications, ", "))
	}
	if err := corflags.Write(d.Out, record); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	_, err = fmt.Fprintln(d.Out)
	return err
}
