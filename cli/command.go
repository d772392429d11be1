package cli

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gocorflags/clrhdr"
)

// +/- options that would rewrite the matching flag of the image.
var toggleOptions = []string{"32bitreq", "32bitpref", "ilonly"}

type options struct {
	info      bool
	noLogo    bool
	verbose   bool
	logFormat string
	toggles   map[string]*string
	switches  map[string]*bool
}

func (o *options) config(flags *pflag.FlagSet, paths []string) (*Config, error) {
	cfg := Config{
		Paths:     paths,
		NoLogo:    o.noLogo,
		Verbose:   o.verbose,
		LogFormat: o.logFormat,
	}

	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if v, ok := o.toggles[f.Name]; ok {
			if err = toggleValue(f.Name, *v); err == nil {
				cfg.Modifications = append(cfg.Modifications, "--"+f.Name+"="+*v)
			}
			return
		}
		if v, ok := o.switches[f.Name]; ok && *v {
			cfg.Modifications = append(cfg.Modifications, "--"+f.Name)
		}
	})
	if err != nil {
		return nil, err
	}
	return NewConfig(cfg)
}

// NewCommand builds the root command. Reports and error lines go to stdout,
// diagnostics and usage errors to stderr.
func NewCommand(reader clrhdr.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{
		toggles:  make(map[string]*string),
		switches: make(map[string]*bool),
	}

	cmd := &cobra.Command{
		Use:           toolName + " [options] <assembly>...",
		Short:         "Report the CLR header flags of managed executables",
		Version:       toolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No arguments at all is a request for help.
			if len(args) == 0 && cmd.Flags().NFlag() == 0 {
				printBanner(stdout)
				printUsage(stdout, cmd.Flags())
				return nil
			}

			cfg, err := opts.config(cmd.Flags(), args)
			if err != nil {
				return failf(err.Error())
			}
			if len(cfg.Paths) == 0 {
				return failf("no input files specified")
			}

			driver := &Driver{
				Reader: reader,
				Out:    stdout,
				Logger: newLogger(cfg.Verbose, cfg.LogFormat, stderr),
				Config: cfg,
			}
			return driver.Run()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		printBanner(stdout)
		printUsage(stdout, c.Flags())
	})
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return failf(err.Error())
	})

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.BoolVar(&opts.info, "info", false, "Display information about the image (default, and the only supported mode)")
	flags.BoolVar(&opts.noLogo, "nologo", false, "Suppress the banner")
	for _, name := range toggleOptions {
		opts.toggles[name] = flags.String(name, "", "Set (+) or clear (-) the "+name+" flag (not implemented)")
	}
	opts.switches["upgrade-clr-header"] = flags.Bool("upgrade-clr-header", false, "Upgrade the CLR header to version 2.5 (not implemented)")
	opts.switches["revert-clr-header"] = flags.Bool("revert-clr-header", false, "Revert the CLR header to version 2.0 (not implemented)")
	opts.switches["force"] = flags.Bool("force", false, "Update strong name signed images as well (not implemented)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log diagnostics to stderr")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Diagnostics format: 'text' or 'json'")

	return cmd
}

// Execute runs the command line args against reader.
func Execute(args []string, reader clrhdr.Reader, stdout, stderr io.Writer) error {
	if args == nil {
		args = []string{}
	}
	cmd := NewCommand(reader, stdout, stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}
