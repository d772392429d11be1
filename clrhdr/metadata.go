package clrhdr

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
)

const (
	cor20HeaderSize   = 72
	metadataSignature = 0x424A5342 // BSJB
	maxStreamName     = 32
)

// Compressed ("#~") and uncompressed ("#-") table streams share one layout.
var tablesStreamNames = []string{"#~", "#-"}

// cor20Header is IMAGE_COR20_HEADER.
type cor20Header struct {
	Cb                  uint32
	MajorRuntimeVersion uint16
	MinorRuntimeVersion uint16
	MetaDataRVA         uint32
	MetaDataSize        uint32
	Flags               uint32
	EntryPointToken     uint32

	ResourcesRVA                uint32
	ResourcesSize               uint32
	StrongNameSignatureRVA      uint32
	StrongNameSignatureSize     uint32
	CodeManagerTableRVA         uint32
	CodeManagerTableSize        uint32
	VTableFixupsRVA             uint32
	VTableFixupsSize            uint32
	ExportAddressTableJumpsRVA  uint32
	ExportAddressTableJumpsSize uint32
	ManagedNativeHeaderRVA      uint32
	ManagedNativeHeaderSize     uint32
}

type metadataRootHeader struct {
	Signature    uint32
	MajorVersion uint16
	MinorVersion uint16
	Reserved     uint32
	Length       uint32
}

type metadataRootTail struct {
	Flags   uint16
	Streams uint16
}

type streamHeader struct {
	Offset uint32
	Size   uint32
}

type metadataRoot struct {
	version string
	streams map[string][]byte
}

func (m *metadataRoot) stream(names ...string) ([]byte, bool) {
	for _, name := range names {
		if data, ok := m.streams[name]; ok {
			return data, true
		}
	}
	return nil, false
}

func parseMetadataRoot(data []byte) (*metadataRoot, error) {
	r := bytes.NewReader(data)

	var hdr metadataRootHeader
	if err := struc.UnpackWithOrder(r, &hdr, binary.LittleEndian); err != nil {
		return nil, invalidf("short metadata root: %v", err)
	}
	if hdr.Signature != metadataSignature {
		return nil, invalidf("bad metadata signature 0x%08X", hdr.Signature)
	}
	if uint64(hdr.Length) > uint64(r.Len()) {
		return nil, invalidf("metadata version length %d exceeds metadata size", hdr.Length)
	}
	versionBytes := make([]byte, hdr.Length)
	if _, err := io.ReadFull(r, versionBytes); err != nil {
		return nil, invalidf("short metadata version: %v", err)
	}
	if i := bytes.IndexByte(versionBytes, 0); i >= 0 {
		versionBytes = versionBytes[:i]
	}

	var tail metadataRootTail
	if err := struc.UnpackWithOrder(r, &tail, binary.LittleEndian); err != nil {
		return nil, invalidf("short metadata root: %v", err)
	}

	root := &metadataRoot{
		version: string(versionBytes),
		streams: make(map[string][]byte, tail.Streams),
	}
	for i := 0; i < int(tail.Streams); i++ {
		var sh streamHeader
		if err := struc.UnpackWithOrder(r, &sh, binary.LittleEndian); err != nil {
			return nil, invalidf("short stream header %d: %v", i, err)
		}
		name, err := readStreamName(r)
		if err != nil {
			return nil, err
		}
		end := uint64(sh.Offset) + uint64(sh.Size)
		if end > uint64(len(data)) {
			return nil, invalidf("stream %q runs past end of metadata", name)
		}
		root.streams[name] = data[sh.Offset:end]
	}
	return root, nil
}

// readStreamName reads a NUL-terminated name padded to a four byte boundary.
func readStreamName(r *bytes.Reader) (string, error) {
	var name []byte
	for {
		chunk := make([]byte, 4)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return "", invalidf("short stream name: %v", err)
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			return string(append(name, chunk[:i]...)), nil
		}
		name = append(name, chunk...)
		if len(name) >= maxStreamName {
			return "", invalidf("unterminated stream name %q", name)
		}
	}
}
