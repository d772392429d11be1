package clrhdr

import (
	"debug/pe"
	"fmt"
)

// Architecture is the target machine of an image as recorded in the COFF header.
type Architecture int

const (
	ArchUnknown Architecture = iota
	ArchI386
	ArchAMD64
	ArchIA64
	ArchARM
	ArchARMv7
	ArchARM64
)

func (a Architecture) String() string {
	switch a {
	case ArchI386:
		return "i386"
	case ArchAMD64:
		return "amd64"
	case ArchIA64:
		return "ia64"
	case ArchARM:
		return "arm"
	case ArchARMv7:
		return "armv7"
	case ArchARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

func architectureFromMachine(machine uint16) Architecture {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return ArchI386
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return ArchAMD64
	case pe.IMAGE_FILE_MACHINE_IA64:
		return ArchIA64
	case pe.IMAGE_FILE_MACHINE_ARM:
		return ArchARM
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return ArchARMv7
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return ArchARM64
	default:
		return ArchUnknown
	}
}

// Runtime is the generation of the runtime an image was built against.
// Values are ordered, so generations can be compared with < and <=.
type Runtime int

const (
	RuntimeNet1_0 Runtime = iota
	RuntimeNet1_1
	RuntimeNet2_0
	RuntimeNet4_0
)

func (r Runtime) String() string {
	switch r {
	case RuntimeNet1_0:
		return "1.0"
	case RuntimeNet1_1:
		return "1.1"
	case RuntimeNet2_0:
		return "2.0"
	case RuntimeNet4_0:
		return "4.0"
	default:
		return fmt.Sprintf("Runtime(%d)", int(r))
	}
}

// ModuleAttributes is the Flags field of the CLI header.
type ModuleAttributes uint32

const (
	ILOnly           ModuleAttributes = 0x00000001
	Required32Bit    ModuleAttributes = 0x00000002
	ILLibrary        ModuleAttributes = 0x00000004
	StrongNameSigned ModuleAttributes = 0x00000008
	NativeEntryPoint ModuleAttributes = 0x00000010
	TrackDebugData   ModuleAttributes = 0x00010000
	Preferred32Bit   ModuleAttributes = 0x00020000
)

// Has reports whether every bit of flag is set.
func (m ModuleAttributes) Has(flag ModuleAttributes) bool {
	return m&flag == flag
}

// Header is what the reader extracts from a managed image.
type Header struct {
	RuntimeVersion  string
	Runtime         Runtime
	Architecture    Architecture
	Attributes      ModuleAttributes
	AssemblyVersion string

	Machine  uint16
	CLRMajor uint16
	CLRMinor uint16
}
