package clrhdr

import (
	"bytes"
	"fmt"

	"github.com/yalue/elf_reader"
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// describeForeignImage names a non-PE executable format so that the invalid
// header error says what the file actually is. It returns "" for anything
// it does not recognise.
func describeForeignImage(rawData []byte) string {
	if !bytes.HasPrefix(rawData, elfMagic) {
		return ""
	}
	elfFile, err := elf_reader.ParseELFFile(rawData)
	if err != nil {
		return fmt.Sprintf("malformed ELF image: %v", err)
	}
	return fmt.Sprintf("ELF image (type %v, %d sections), not a PE image",
		elfFile.GetFileType(), elfFile.GetSectionCount())
}
