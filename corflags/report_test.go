package corflags

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"gocorflags/clrhdr"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		hdr  clrhdr.Header
		want []string
	}{
		{
			name: "anycpu",
			hdr:  clrhdr.Header{RuntimeVersion: "v4.0.30319", Runtime: clrhdr.RuntimeNet4_0, Architecture: clrhdr.ArchI386, Attributes: 0x1},
			want: []string{
				"Version   : v4.0.30319",
				"CLR Header: 2.5",
				"PE        : PE32",
				"CorFlags  : 0x1",
				"ILONLY    : 1",
				"32BITREQ  : 0",
				"32BITPREF : 0",
				"Signed    : 0",
			},
		},
		{
			name: "x86",
			hdr:  clrhdr.Header{RuntimeVersion: "v4.0.30319", Runtime: clrhdr.RuntimeNet4_0, Architecture: clrhdr.ArchI386, Attributes: 0x3},
			want: []string{
				"Version   : v4.0.30319",
				"CLR Header: 2.5",
				"PE        : PE32",
				"CorFlags  : 0x3",
				"ILONLY    : 1",
				"32BITREQ  : 1",
				"32BITPREF : 0",
				"Signed    : 0",
			},
		},
		{
			name: "x64",
			hdr:  clrhdr.Header{RuntimeVersion: "v4.0.30319", Runtime: clrhdr.RuntimeNet4_0, Architecture: clrhdr.ArchAMD64, Attributes: 0x1},
			want: []string{
				"Version   : v4.0.30319",
				"CLR Header: 2.5",
				"PE        : PE32+",
				"CorFlags  : 0x1",
				"ILONLY    : 1",
				"32BITREQ  : 0",
				"32BITPREF : 0",
				"Signed    : 0",
			},
		},
		{
			name: "everett signed prefer32",
			hdr:  clrhdr.Header{RuntimeVersion: "v1.1.4322", Runtime: clrhdr.RuntimeNet1_1, Architecture: clrhdr.ArchI386, Attributes: 0x2000B},
			want: []string{
				"Version   : v1.1.4322",
				"CLR Header: 2.0",
				"PE        : PE32",
				"CorFlags  : 0x2000B",
				"ILONLY    : 1",
				"32BITREQ  : 1",
				"32BITPREF : 1",
				"Signed    : 1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr := tt.hdr
			require.Equal(t, tt.want, Render(Decode(&hdr)))
		})
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, Decode(&clrhdr.Header{RuntimeVersion: "v2.0.50727", Runtime: clrhdr.RuntimeNet2_0, Attributes: 0xAB}))
	require.NoError(t, err)
	require.Equal(t, "Version   : v2.0.50727\n"+
		"CLR Header: 2.5\n"+
		"PE        : PE32\n"+
		"CorFlags  : 0xAB\n"+
		"ILONLY    : 1\n"+
		"32BITREQ  : 1\n"+
		"32BITPREF : 0\n"+
		"Signed    : 1\n", buf.String())
}
