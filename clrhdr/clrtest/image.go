// Package clrtest builds small managed and native PE images for tests.
package clrtest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/lunixbochs/struc"
)

const (
	peHeaderOffset  = 0x80
	fileAlignment   = 0x200
	sectionAlign    = 0x1000
	textRVA         = 0x2000
	metadataOffset  = 0x48
	bsjb            = 0x424A5342
	assemblyTable   = 0x20
	typeRefTable    = 0x01
	moduleTable     = 0x00
	cor20HeaderSize = 72
)

// Image describes the image to build. The zero value is a PE32 i386
// assembly targeting v4.0.30319 with no flags set.
type Image struct {
	PE32Plus        bool
	Machine         uint16
	RuntimeVersion  string
	CLRMajor        uint16
	CLRMinor        uint16
	Flags           uint32
	AssemblyVersion [4]uint16
	// NoAssembly leaves out the Assembly table, as in a netmodule.
	NoAssembly bool
	// TypeRefRows adds rows ahead of the Assembly table.
	TypeRefRows int
	// Native leaves the CLI header directory empty.
	Native            bool
	MetadataSignature uint32
	TablesStream      string
}

type cor20Header struct {
	Cb                  uint32
	MajorRuntimeVersion uint16
	MinorRuntimeVersion uint16
	MetaDataRVA         uint32
	MetaDataSize        uint32
	Flags               uint32
	EntryPointToken     uint32
}

type metadataRootHeader struct {
	Signature    uint32
	MajorVersion uint16
	MinorVersion uint16
	Reserved     uint32
	Length       uint32
}

type tablesHeader struct {
	Reserved     uint32
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    uint8
	Reserved2    uint8
	Valid        uint64
	Sorted       uint64
}

type stream struct {
	name string
	data []byte
}

// Bytes renders the image.
func (img Image) Bytes() []byte {
	text := img.textSection()
	rawSize := align(uint32(len(text)), fileAlignment)

	var buf bytes.Buffer
	dos := make([]byte, peHeaderOffset)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[0x3C:], peHeaderOffset)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	machine := img.Machine
	if machine == 0 {
		machine = pe.IMAGE_FILE_MACHINE_I386
	}
	var dirs [16]pe.DataDirectory
	if !img.Native {
		dirs[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR] = pe.DataDirectory{VirtualAddress: textRVA, Size: cor20HeaderSize}
	}

	fh := pe.FileHeader{
		Machine:          machine,
		NumberOfSections: 1,
		Characteristics:  pe.IMAGE_FILE_EXECUTABLE_IMAGE,
	}
	var opt interface{}
	if img.PE32Plus {
		fh.SizeOfOptionalHeader = uint16(binary.Size(pe.OptionalHeader64{}))
		fh.Characteristics |= pe.IMAGE_FILE_LARGE_ADDRESS_AWARE
		opt = &pe.OptionalHeader64{
			Magic:               0x20B,
			SizeOfCode:          rawSize,
			BaseOfCode:          textRVA,
			ImageBase:           0x140000000,
			SectionAlignment:    sectionAlign,
			FileAlignment:       fileAlignment,
			SizeOfImage:         textRVA + align(uint32(len(text)), sectionAlign),
			SizeOfHeaders:       fileAlignment,
			Subsystem:           pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
			NumberOfRvaAndSizes: 16,
			DataDirectory:       dirs,
		}
	} else {
		fh.SizeOfOptionalHeader = uint16(binary.Size(pe.OptionalHeader32{}))
		fh.Characteristics |= pe.IMAGE_FILE_32BIT_MACHINE
		opt = &pe.OptionalHeader32{
			Magic:               0x10B,
			SizeOfCode:          rawSize,
			BaseOfCode:          textRVA,
			ImageBase:           0x400000,
			SectionAlignment:    sectionAlign,
			FileAlignment:       fileAlignment,
			SizeOfImage:         textRVA + align(uint32(len(text)), sectionAlign),
			SizeOfHeaders:       fileAlignment,
			Subsystem:           pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
			NumberOfRvaAndSizes: 16,
			DataDirectory:       dirs,
		}
	}
	_ = binary.Write(&buf, binary.LittleEndian, &fh)
	_ = binary.Write(&buf, binary.LittleEndian, opt)

	sh := pe.SectionHeader32{
		VirtualSize:      uint32(len(text)),
		VirtualAddress:   textRVA,
		SizeOfRawData:    rawSize,
		PointerToRawData: fileAlignment,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ,
	}
	copy(sh.Name[:], ".text")
	_ = binary.Write(&buf, binary.LittleEndian, &sh)

	buf.Write(make([]byte, fileAlignment-buf.Len()))
	buf.Write(text)
	buf.Write(make([]byte, int(rawSize)-len(text)))
	return buf.Bytes()
}

// WriteTemp writes the image to a new file under t.TempDir and returns its path.
func WriteTemp(t testing.TB, name string, img Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, img.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write image %s: %v", path, err)
	}
	return path
}

func (img Image) textSection() []byte {
	metadata := img.metadata()

	major, minor := img.CLRMajor, img.CLRMinor
	if major == 0 && minor == 0 {
		major, minor = 2, 5
	}
	cor := cor20Header{
		Cb:                  cor20HeaderSize,
		MajorRuntimeVersion: major,
		MinorRuntimeVersion: minor,
		MetaDataRVA:         textRVA + metadataOffset,
		MetaDataSize:        uint32(len(metadata)),
		Flags:               img.Flags,
	}

	var buf bytes.Buffer
	_ = struc.PackWithOrder(&buf, &cor, binary.LittleEndian)
	buf.Write(make([]byte, metadataOffset-buf.Len()))
	buf.Write(metadata)
	return buf.Bytes()
}

func (img Image) metadata() []byte {
	runtimeVersion := img.RuntimeVersion
	if runtimeVersion == "" {
		runtimeVersion = "v4.0.30319"
	}
	signature := img.MetadataSignature
	if signature == 0 {
		signature = bsjb
	}
	tablesName := img.TablesStream
	if tablesName == "" {
		tablesName = "#~"
	}

	streams := []stream{
		{name: tablesName, data: img.tables()},
		{name: "#Strings", data: []byte{0, 0, 0, 0}},
	}

	versionField := pad4(append([]byte(runtimeVersion), 0))
	headerSize := 16 + len(versionField) + 4
	for _, s := range streams {
		headerSize += 8 + len(pad4(append([]byte(s.name), 0)))
	}

	var buf bytes.Buffer
	_ = struc.PackWithOrder(&buf, &metadataRootHeader{
		Signature:    signature,
		MajorVersion: 1,
		MinorVersion: 1,
		Length:       uint32(len(versionField)),
	}, binary.LittleEndian)
	buf.Write(versionField)
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{0, uint16(len(streams))})

	offset := uint32(headerSize)
	for _, s := range streams {
		_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{offset, uint32(len(s.data))})
		buf.Write(pad4(append([]byte(s.name), 0)))
		offset += uint32(len(s.data))
	}
	for _, s := range streams {
		buf.Write(s.data)
	}
	return buf.Bytes()
}

func (img Image) tables() []byte {
	valid := uint64(1) << moduleTable
	if img.TypeRefRows > 0 {
		valid |= 1 << typeRefTable
	}
	if !img.NoAssembly {
		valid |= 1 << assemblyTable
	}

	var buf bytes.Buffer
	_ = struc.PackWithOrder(&buf, &tablesHeader{MajorVersion: 2, Reserved2: 1, Valid: valid}, binary.LittleEndian)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
	if img.TypeRefRows > 0 {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(img.TypeRefRows))
	}
	if !img.NoAssembly {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(1))
	}

	// Module: Generation, Name, Mvid, EncId, EncBaseId.
	buf.Write(make([]byte, 10))
	// TypeRef: ResolutionScope, TypeName, TypeNamespace.
	for i := 0; i < img.TypeRefRows; i++ {
		_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0xFFFF, 0xEEEE, 0xDDDD})
	}
	if !img.NoAssembly {
		// HashAlgId, version, Flags, PublicKey, Name, Culture.
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0x8004))
		_ = binary.Write(&buf, binary.LittleEndian, img.AssemblyVersion)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(0))
		buf.Write(make([]byte, 6))
	}
	return pad4(buf.Bytes())
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func align(v, to uint32) uint32 {
	return (v + to - 1) / to * to
}
