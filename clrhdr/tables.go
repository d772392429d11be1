package clrhdr

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lunixbochs/struc"
)

// Metadata table numbers (ECMA-335 II.22).
const (
	tblModule                 = 0x00
	tblTypeRef                = 0x01
	tblTypeDef                = 0x02
	tblFieldPtr               = 0x03
	tblField                  = 0x04
	tblMethodPtr              = 0x05
	tblMethodDef              = 0x06
	tblParamPtr               = 0x07
	tblParam                  = 0x08
	tblInterfaceImpl          = 0x09
	tblMemberRef              = 0x0A
	tblConstant               = 0x0B
	tblCustomAttribute        = 0x0C
	tblFieldMarshal           = 0x0D
	tblDeclSecurity           = 0x0E
	tblClassLayout            = 0x0F
	tblFieldLayout            = 0x10
	tblStandAloneSig          = 0x11
	tblEventMap               = 0x12
	tblEventPtr               = 0x13
	tblEvent                  = 0x14
	tblPropertyMap            = 0x15
	tblPropertyPtr            = 0x16
	tblProperty               = 0x17
	tblMethodSemantics        = 0x18
	tblMethodImpl             = 0x19
	tblModuleRef              = 0x1A
	tblTypeSpec               = 0x1B
	tblImplMap                = 0x1C
	tblFieldRVA               = 0x1D
	tblEncLog                 = 0x1E
	tblEncMap                 = 0x1F
	tblAssembly               = 0x20
	tblAssemblyRef            = 0x23
	tblFile                   = 0x26
	tblExportedType           = 0x27
	tblManifestResource       = 0x28
	tblGenericParam           = 0x2A
	tblMethodSpec             = 0x2B
	tblGenericParamConstraint = 0x2C

	tblUnused = -1
)

// Heap size flags of the tables stream header.
const (
	heapStringsWide = 0x01
	heapGUIDWide    = 0x02
	heapBlobWide    = 0x04
	heapExtraData   = 0x40
)

type codedIndex struct {
	tagBits uint
	tables  []int
}

var (
	typeDefOrRef        = codedIndex{2, []int{tblTypeDef, tblTypeRef, tblTypeSpec}}
	hasConstant         = codedIndex{2, []int{tblField, tblParam, tblProperty}}
	hasCustomAttribute  = codedIndex{5, []int{tblMethodDef, tblField, tblTypeRef, tblTypeDef, tblParam, tblInterfaceImpl, tblMemberRef, tblModule, tblDeclSecurity, tblProperty, tblEvent, tblStandAloneSig, tblModuleRef, tblTypeSpec, tblAssembly, tblAssemblyRef, tblFile, tblExportedType, tblManifestResource, tblGenericParam, tblGenericParamConstraint, tblMethodSpec}}
	hasFieldMarshal     = codedIndex{1, []int{tblField, tblParam}}
	hasDeclSecurity     = codedIndex{2, []int{tblTypeDef, tblMethodDef, tblAssembly}}
	memberRefParent     = codedIndex{3, []int{tblTypeDef, tblTypeRef, tblModuleRef, tblMethodDef, tblTypeSpec}}
	hasSemantics        = codedIndex{1, []int{tblEvent, tblProperty}}
	methodDefOrRef      = codedIndex{1, []int{tblMethodDef, tblMemberRef}}
	memberForwarded     = codedIndex{1, []int{tblField, tblMethodDef}}
	customAttributeType = codedIndex{3, []int{tblUnused, tblUnused, tblMethodDef, tblMemberRef, tblUnused}}
	resolutionScope     = codedIndex{2, []int{tblModule, tblModuleRef, tblAssemblyRef, tblTypeRef}}
)

type columnKind int

const (
	colU16 columnKind = iota
	colU32
	colString
	colGUID
	colBlob
	colTable
	colCoded
)

type column struct {
	kind  columnKind
	table int
	coded codedIndex
}

var (
	u16  = column{kind: colU16}
	u32  = column{kind: colU32}
	str  = column{kind: colString}
	guid = column{kind: colGUID}
	blob = column{kind: colBlob}
)

func index(table int) column     { return column{kind: colTable, table: table} }
func coded(ci codedIndex) column { return column{kind: colCoded, coded: ci} }

// tableSchemas lists the columns of every table stored before Assembly.
var tableSchemas = [tblAssembly][]column{
	tblModule:          {u16, str, guid, guid, guid},
	tblTypeRef:         {coded(resolutionScope), str, str},
	tblTypeDef:         {u32, str, str, coded(typeDefOrRef), index(tblField), index(tblMethodDef)},
	tblFieldPtr:        {index(tblField)},
	tblField:           {u16, str, blob},
	tblMethodPtr:       {index(tblMethodDef)},
	tblMethodDef:       {u32, u16, u16, str, blob, index(tblParam)},
	tblParamPtr:        {index(tblParam)},
	tblParam:           {u16, u16, str},
	tblInterfaceImpl:   {index(tblTypeDef), coded(typeDefOrRef)},
	tblMemberRef:       {coded(memberRefParent), str, blob},
	tblConstant:        {u16, coded(hasConstant), blob},
	tblCustomAttribute: {coded(hasCustomAttribute), coded(customAttributeType), blob},
	tblFieldMarshal:    {coded(hasFieldMarshal), blob},
	tblDeclSecurity:    {u16, coded(hasDeclSecurity), blob},
	tblClassLayout:     {u16, u32, index(tblTypeDef)},
	tblFieldLayout:     {u32, index(tblField)},
	tblStandAloneSig:   {blob},
	tblEventMap:        {index(tblTypeDef), index(tblEvent)},
	tblEventPtr:        {index(tblEvent)},
	tblEvent:           {u16, str, coded(typeDefOrRef)},
	tblPropertyMap:     {index(tblTypeDef), index(tblProperty)},
	tblPropertyPtr:     {index(tblProperty)},
	tblProperty:        {u16, str, blob},
	tblMethodSemantics: {u16, index(tblMethodDef), coded(hasSemantics)},
	tblMethodImpl:      {index(tblTypeDef), coded(methodDefOrRef), coded(methodDefOrRef)},
	tblModuleRef:       {str},
	tblTypeSpec:        {blob},
	tblImplMap:         {u16, coded(memberForwarded), str, index(tblModuleRef)},
	tblFieldRVA:        {u32, index(tblField)},
	tblEncLog:          {u32, u32},
	tblEncMap:          {u32},
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

type assemblyRow struct {
	HashAlgID      uint32
	MajorVersion   uint16
	MinorVersion   uint16
	BuildNumber    uint16
	RevisionNumber uint16
}

type tableLayout struct {
	heapSizes uint8
	rows      [64]uint32
}

func (l *tableLayout) heapIndexSize(wideFlag uint8) int64 {
	if l.heapSizes&wideFlag != 0 {
		return 4
	}
	return 2
}

func (l *tableLayout) codedIndexSize(ci codedIndex) int64 {
	var most uint32
	for _, t := range ci.tables {
		if t != tblUnused && l.rows[t] > most {
			most = l.rows[t]
		}
	}
	if most < 1<<(16-ci.tagBits) {
		return 2
	}
	return 4
}

func (l *tableLayout) columnSize(c column) int64 {
	switch c.kind {
	case colU16:
		return 2
	case colU32:
		return 4
	case colString:
		return l.heapIndexSize(heapStringsWide)
	case colGUID:
		return l.heapIndexSize(heapGUIDWide)
	case colBlob:
		return l.heapIndexSize(heapBlobWide)
	case colTable:
		if l.rows[c.table] < 1<<16 {
			return 2
		}
		return 4
	default:
		return l.codedIndexSize(c.coded)
	}
}

func (l *tableLayout) rowSize(table int) int64 {
	var size int64
	for _, c := range tableSchemas[table] {
		size += l.columnSize(c)
	}
	return size
}

// readAssemblyVersion returns the version recorded in the Assembly table of a
// tables stream, or "" when the image is a module without a manifest.
func readAssemblyVersion(stream []byte) (string, error) {
	r := bytes.NewReader(stream)

	var hdr tablesHeader
	if err := struc.UnpackWithOrder(r, &hdr, binary.LittleEndian); err != nil {
		return "", invalidf("short tables stream header: %v", err)
	}

	layout := tableLayout{heapSizes: hdr.HeapSizes}
	for t := range layout.rows {
		if hdr.Valid&(1<<uint(t)) == 0 {
			continue
		}
		if err := binary.Read(r, binary.LittleEndian, &layout.rows[t]); err != nil {
			return "", invalidf("short row count for table 0x%02X: %v", t, err)
		}
	}
	if hdr.HeapSizes&heapExtraData != 0 {
		if _, err := r.Seek(4, io.SeekCurrent); err != nil {
			return "", invalidf("short tables stream header: %v", err)
		}
	}

	if layout.rows[tblAssembly] == 0 {
		return "", nil
	}

	offset := int64(len(stream) - r.Len())
	for t := 0; t < tblAssembly; t++ {
		offset += int64(layout.rows[t]) * layout.rowSize(t)
	}
	if offset < 0 || offset >= int64(len(stream)) {
		return "", invalidf("assembly table lies outside the tables stream")
	}

	var row assemblyRow
	if err := struc.UnpackWithOrder(bytes.NewReader(stream[offset:]), &row, binary.LittleEndian); err != nil {
		return "", invalidf("short assembly row: %v", err)
	}
	return fmt.Sprintf("%d.%d.%d.%d", row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber), nil
}
