package corflags

import (
	"fmt"
	"io"
)

// Render returns the report lines for r in their fixed order.
func Render(r FlagRecord) []string {
	return []string{
		fmt.Sprintf("Version   : %s", r.Version),
		fmt.Sprintf("CLR Header: %s", r.CLRHeader),
		fmt.Sprintf("PE        : %s", r.PEFormat),
		fmt.Sprintf("CorFlags  : 0x%X", r.CorFlags),
		fmt.Sprintf("ILONLY    : %d", bit(r.ILOnly)),
		fmt.Sprintf("32BITREQ  : %d", bit(r.Requires32Bit)),
		fmt.Sprintf("32BITPREF : %d", bit(r.Prefers32Bit)),
		fmt.Sprintf("Signed    : %d", bit(r.Signed)),
	}
}

// Write prints the report for r to w, one line per field.
func Write(w io.Writer, r FlagRecord) error {
	for _, line := range Render(r) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
