package util

import (
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// Checksum utilities for data integrity validation
// Uses CRC32 (IEEE polynomial) for fast checksum computation

var (
	// crc32Table is precomputed for better performance
	crc32Table = crc32.MakeTable(crc32.IEEE)
)

// ComputeChecksum computes a CRC32 checksum for the given data
func ComputeChecksum(data []byte) uint32 {
	return crc32.Checksum(data, crc32Table)
}

// ValidateChecksum validates data against an expected checksum
func ValidateChecksum(data []byte, expected uint32) bool {
	return ComputeChecksum(data) == expected
}

// ChecksumHex returns the CRC32 checksum of data as lowercase hex
func ChecksumHex(data []byte) string {
	sum := ComputeChecksum(data)
	buf := []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
	return hex.EncodeToString(buf)
}

// FileChecksumHex computes the CRC32 checksum of a file's contents
// as lowercase hex, streaming so large files are not held in memory
func FileChecksumHex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := crc32.New(crc32Table)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
