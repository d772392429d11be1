package clrhdr

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// runtimeFromVersion maps a metadata version string such as "v2.0.50727" to
// its runtime generation. Strings that do not parse as a version are treated
// as the newest generation.
func runtimeFromVersion(s string) Runtime {
	v, err := version.NewVersion(strings.TrimSpace(s))
	if err != nil {
		return RuntimeNet4_0
	}
	segments := v.Segments()
	switch segments[0] {
	case 1:
		if segments[1] == 0 {
			return RuntimeNet1_0
		}
		return RuntimeNet1_1
	case 2:
		return RuntimeNet2_0
	default:
		return RuntimeNet4_0
	}
}
