package utils

import (
	"hash/crc32"
	"strings"

	"golang.org/x/text/transform"

	"github.com/mogaika/vmeshconv/config"
)

// ModelNameHash is the name hash persisted in mesh references and sub-mesh
// headers: CRC-32 (IEEE) of the lower-cased name bytes.
func ModelNameHash(name string) uint32 {
	return crc32.ChecksumIEEE(nameHashBytes(name))
}

func nameHashBytes(name string) []byte {
	lower := strings.ToLower(name)
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(lower))
	if err != nil {
		// unmappable rune, hash the raw utf8
		return []byte(lower)
	}
	return bs
}
