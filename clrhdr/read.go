package clrhdr

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// ReadFile loads the CLI header of the image at path.
func ReadFile(path string) (*Header, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(ErrNotFound, err.Error())
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Wrapf(ErrNotFound, "%s is not a regular file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(ErrNotFound, err.Error())
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	rawData, err := readFileData(file)
	if err != nil {
		return nil, err
	}

	return Parse(rawData)
}

// Parse decodes the header of an in-memory image.
func Parse(rawData []byte) (*Header, error) {
	if err := validateDOSHeader(rawData); err != nil {
		if reason := describeForeignImage(rawData); reason != "" {
			return nil, invalidf("%s", reason)
		}
		return nil, invalidf("%v", err)
	}

	fileHeaderAt, machine, err := coffHeader(rawData)
	if err != nil {
		return nil, err
	}
	// debug/pe refuses machines it has no loader for, IA64 and ARM among
	// them. Only the layout matters here, so it parses a copy with the
	// machine cleared.
	layout := append([]byte(nil), rawData...)
	binary.LittleEndian.PutUint16(layout[fileHeaderAt:], pe.IMAGE_FILE_MACHINE_UNKNOWN)

	img, err := pe.NewFile(bytes.NewReader(layout))
	if err != nil {
		return nil, invalidf("malformed PE image: %v", err)
	}
	defer func() {
		_ = img.Close()
	}()

	dir, ok := cliDirectory(img)
	if !ok {
		return nil, invalidf("image has no CLI header directory")
	}
	corData, err := sliceRVA(img, rawData, dir.VirtualAddress, dir.Size)
	if err != nil {
		return nil, errors.Wrap(err, "CLI header")
	}

	var cor cor20Header
	if err := struc.UnpackWithOrder(bytes.NewReader(corData), &cor, binary.LittleEndian); err != nil {
		return nil, invalidf("short CLI header: %v", err)
	}
	if cor.Cb < cor20HeaderSize {
		return nil, invalidf("CLI header size %d is below %d", cor.Cb, cor20HeaderSize)
	}

	metaData, err := sliceRVA(img, rawData, cor.MetaDataRVA, cor.MetaDataSize)
	if err != nil {
		return nil, errors.Wrap(err, "metadata")
	}
	root, err := parseMetadataRoot(metaData)
	if err != nil {
		return nil, err
	}

	tables, ok := root.stream(tablesStreamNames...)
	if !ok {
		return nil, invalidf("metadata has no tables stream")
	}
	assemblyVersion, err := readAssemblyVersion(tables)
	if err != nil {
		return nil, err
	}

	return &Header{
		RuntimeVersion:  root.version,
		Runtime:         runtimeFromVersion(root.version),
		Architecture:    architectureFromMachine(machine),
		Attributes:      ModuleAttributes(cor.Flags),
		AssemblyVersion: assemblyVersion,
		Machine:         machine,
		CLRMajor:        cor.MajorRuntimeVersion,
		CLRMinor:        cor.MinorRuntimeVersion,
	}, nil
}

func readFileData(file *os.File) ([]byte, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	rawData := make([]byte, fileInfo.Size())
	if _, err := io.ReadFull(file, rawData); err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	return rawData, nil
}

func validateDOSHeader(data []byte) error {
	if len(data) < 64 {
		return fmt.Errorf("file too small to be a valid PE file")
	}
	if data[0] != 'M' || data[1] != 'Z' {
		return fmt.Errorf("invalid DOS header signature")
	}
	return nil
}

// coffHeader returns the file offset of the COFF header and its machine field.
func coffHeader(rawData []byte) (int, uint16, error) {
	peOffset := int64(binary.LittleEndian.Uint32(rawData[0x3C:0x40]))
	if peOffset+24 > int64(len(rawData)) {
		return 0, 0, invalidf("PE header offset 0x%X is past end of file", peOffset)
	}
	if !bytes.Equal(rawData[peOffset:peOffset+4], []byte("PE\x00\x00")) {
		return 0, 0, invalidf("invalid PE signature")
	}
	fileHeaderAt := int(peOffset) + 4
	return fileHeaderAt, binary.LittleEndian.Uint16(rawData[fileHeaderAt:]), nil
}

func cliDirectory(img *pe.File) (pe.DataDirectory, bool) {
	var (
		count uint32
		dirs  [16]pe.DataDirectory
	)
	switch oh := img.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		count, dirs = oh.NumberOfRvaAndSizes, oh.DataDirectory
	case *pe.OptionalHeader64:
		count, dirs = oh.NumberOfRvaAndSizes, oh.DataDirectory
	default:
		return pe.DataDirectory{}, false
	}
	if count <= pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR {
		return pe.DataDirectory{}, false
	}
	dir := dirs[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR]
	return dir, dir.VirtualAddress != 0 && dir.Size != 0
}

// sliceRVA returns the size bytes of rawData that the section table maps at rva.
func sliceRVA(img *pe.File, rawData []byte, rva, size uint32) ([]byte, error) {
	for _, s := range img.Sections {
		extent := s.VirtualSize
		if s.Size > extent {
			extent = s.Size
		}
		if rva < s.VirtualAddress || uint64(rva) >= uint64(s.VirtualAddress)+uint64(extent) {
			continue
		}
		start := uint64(s.Offset) + uint64(rva-s.VirtualAddress)
		end := start + uint64(size)
		if end > uint64(len(rawData)) {
			return nil, invalidf("RVA 0x%X+0x%X runs past end of file", rva, size)
		}
		return rawData[start:end], nil
	}
	return nil, invalidf("RVA 0x%X is not mapped by any section", rva)
}
