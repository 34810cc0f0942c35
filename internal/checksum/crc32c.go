// Package checksum provides the CRC32C (Castagnoli) checksum used to
// validate record archives.
//
// The record format fixes CRC32C as its only checksum algorithm (see
// package record); keeping it in its own package gives it its own
// golden test vectors instead of inlining the table next to the codec.
package checksum

import (
	"hash/crc32"
)

// crc32cTable is the Castagnoli polynomial table used for CRC32C.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Value computes the CRC32C checksum of data.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// Extend computes the CRC32C of concat(A, data) where initCRC is the CRC32C of A.
func Extend(initCRC uint32, data []byte) uint32 {
	return crc32.Update(initCRC, crc32cTable, data)
}
