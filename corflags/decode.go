// Package corflags turns a CLI header into the CorFlags report.
package corflags

import "gocorflags/clrhdr"

const (
	PE32     = "PE32"
	PE32Plus = "PE32+"
)

// FlagRecord is the decoded view of one image. Every field derives from the
// header it was built from.
type FlagRecord struct {
	Version         string
	AssemblyVersion string
	CLRHeader       string
	PEFormat        string
	CorFlags        uint32
	ILOnly          bool
	Requires32Bit   bool
	Prefers32Bit    bool
	Signed          bool
}

// peFormats lists the architectures whose images use the PE32+ layout.
// Anything else reports PE32.
var peFormats = map[clrhdr.Architecture]string{
	clrhdr.ArchAMD64: PE32Plus,
	clrhdr.ArchIA64:  PE32Plus,
}

// clrHeaderLabels maps runtime generations to the CLR header label, first
// matching row wins. Headers written for 1.0 and 1.1 report 2.0, later ones 2.5.
var clrHeaderLabels = []struct {
	max   clrhdr.Runtime
	label string
}{
	{clrhdr.RuntimeNet1_1, "2.0"},
	{clrhdr.RuntimeNet4_0, "2.5"},
}

func peFormat(arch clrhdr.Architecture) string {
	if f, ok := peFormats[arch]; ok {
		return f
	}
	return PE32
}

func clrHeaderLabel(rt clrhdr.Runtime) string {
	for _, row := range clrHeaderLabels {
		if rt <= row.max {
			return row.label
		}
	}
	return clrHeaderLabels[len(clrHeaderLabels)-1].label
}

// Decode builds the flag record for hdr.
func Decode(hdr *clrhdr.Header) FlagRecord {
	attrs := hdr.Attributes
	return FlagRecord{
		Version:         hdr.RuntimeVersion,
		AssemblyVersion: hdr.AssemblyVersion,
		CLRHeader:       clrHeaderLabel(hdr.Runtime),
		PEFormat:        peFormat(hdr.Architecture),
		CorFlags:        uint32(attrs),
		ILOnly:          attrs.Has(clrhdr.ILOnly),
		Requires32Bit:   attrs.Has(clrhdr.Required32Bit),
		Prefers32Bit:    attrs.Has(clrhdr.Preferred32Bit),
		Signed:          attrs.Has(clrhdr.StrongNameSigned),
	}
}

// Consistent reports whether the boolean flags agree with CorFlags.
func (r FlagRecord) Consistent() bool {
	attrs := clrhdr.ModuleAttributes(r.CorFlags)
	return r.ILOnly == attrs.Has(clrhdr.ILOnly) &&
		r.Requires32Bit == attrs.Has(clrhdr.Required32Bit) &&
		r.Prefers32Bit == attrs.Has(clrhdr.Preferred32Bit) &&
		r.Signed == attrs.Has(clrhdr.StrongNameSigned)
}
