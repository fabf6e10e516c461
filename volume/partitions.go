/*
 * Copyright (c) 2020 Siemens AG
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of
 * this software and associated documentation files (the "Software"), to deal in
 * the Software without restriction, including without limitation the rights to
 * use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
 * the Software, and to permit persons to whom the Software is furnished to do so,
 * subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
 * FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
 * COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
 * IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
 * CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 *
 * Author(s): Jonas Plum
 */

package volume

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const (
	sectorSize = 512

	mbrTableOffset = 446
	mbrEntrySize   = 16
	mbrTypeGPT     = 0xee
)

type partition struct {
	offset      int64
	description string
}

// findPartitions locates the NTFS partitions in a raw image. The image may be
// a bare volume, MBR partitioned or GPT partitioned.
func findPartitions(r io.ReaderAt) ([]partition, error) {
	if isNTFS(r, 0) {
		return []partition{{offset: 0, description: "volume"}}, nil
	}

	sector := make([]byte, sectorSize)
	if _, err := r.ReadAt(sector, 0); err != nil {
		return nil, errors.Wrap(err, "could not read boot sector")
	}
	if sector[510] != 0x55 || sector[511] != 0xaa {
		return nil, nil
	}

	var partitions []partition
	for i := 0; i < 4; i++ {
		entry := sector[mbrTableOffset+i*mbrEntrySize:]
		partitionType := entry[4]
		startLBA := int64(binary.LittleEndian.Uint32(entry[8:12]))

		if partitionType == mbrTypeGPT {
			return gptPartitions(r)
		}
		if partitionType == 0 || startLBA == 0 {
			continue
		}
		if offset := startLBA * sectorSize; isNTFS(r, offset) {
			partitions = append(partitions, partition{
				offset:      offset,
				description: fmt.Sprintf("p%d", i+1),
			})
		}
	}
	return partitions, nil
}

func gptPartitions(r io.ReaderAt) ([]partition, error) {
	header := make([]byte, sectorSize)
	if _, err := r.ReadAt(header, sectorSize); err != nil {
		return nil, errors.Wrap(err, "could not read gpt header")
	}
	if string(header[0:8]) != "EFI PART" {
		return nil, nil
	}

	entryLBA := int64(binary.LittleEndian.Uint64(header[72:80]))
	entryCount := int64(binary.LittleEndian.Uint32(header[80:84]))
	entrySize := int64(binary.LittleEndian.Uint32(header[84:88]))

	// Entries are at least 128 bytes. Smaller sizes or absurd counts mean a
	// corrupt table, which is treated like no table at all.
	if entrySize < 128 || entryCount > 1024 {
		return nil, nil
	}

	var partitions []partition
	entry := make([]byte, entrySize)
	for i := int64(0); i < entryCount; i++ {
		if _, err := r.ReadAt(entry, entryLBA*sectorSize+i*entrySize); err != nil {
			break
		}
		if isZero(entry[0:16]) { // unused entry, no partition type GUID
			continue
		}

		startLBA := int64(binary.LittleEndian.Uint64(entry[32:40]))
		if offset := startLBA * sectorSize; isNTFS(r, offset) {
			partitions = append(partitions, partition{
				offset:      offset,
				description: fmt.Sprintf("p%d", i+1),
			})
		}
	}
	return partitions, nil
}

func isNTFS(r io.ReaderAt, offset int64) bool {
	oem := make([]byte, 8)
	if _, err := r.ReadAt(oem, offset+3); err != nil {
		return false
	}
	return string(oem) == "NTFS    "
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
