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

// Package vss enumerates the volume shadow copies of an NTFS volume and
// provides point-in-time readers for them. A shadow copy store only holds
// the 16 KiB blocks that were overwritten after the snapshot was taken,
// everything else is read from the live volume.
package vss

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const (
	headerOffset = 0x1e00

	// BlockSize is the granularity in which shadow copy stores manage
	// volume data.
	BlockSize = 0x4000

	catalogEntrySize = 128
	recordHeaderSize = 128

	recordTypeCatalog = 2
)

// Identifier of the shadow copy volume header,
// GUID 3808876b-c176-4e48-b7ae-04046bc8c63d.
var volumeIdentifier = [16]byte{
	0x6b, 0x87, 0x08, 0x38, 0x76, 0xc1, 0x48, 0x4e,
	0xb7, 0xae, 0x04, 0x04, 0x6b, 0xc8, 0xc6, 0x3d,
}

type volumeHeader struct {
	Identifier              [16]byte
	Version                 uint32
	RecordType              uint32
	CurrentOffset           uint64
	Unknown                 [16]byte
	CatalogOffset           int64
	MaximumSize             uint64
	VolumeIdentifier        [16]byte
	StorageVolumeIdentifier [16]byte
}

// recordHeader starts every catalog and store block.
type recordHeader struct {
	Identifier     [16]byte
	Version        uint32
	RecordType     uint32
	RelativeOffset int64
	CurrentOffset  int64
	NextOffset     int64
	Unknown        [80]byte
}

type catalogEntry2 struct {
	EntryType       uint64
	VolumeSize      uint64
	StoreIdentifier [16]byte
	Unknown         [16]byte
	CreationTime    uint64
	Unknown2        [72]byte
}

type catalogEntry3 struct {
	EntryType                 uint64
	StoreBlockListOffset      int64
	StoreIdentifier           [16]byte
	StoreHeaderOffset         int64
	StoreBlockRangeListOffset int64
	StoreBitmapOffset         int64
	MetadataReference         uint64
	AllocatedSize             uint64
	StorePreviousBitmapOffset int64
	Unknown                   [48]byte
}

// blockDescriptor maps one overwritten volume block to the location of its
// saved point-in-time content.
type blockDescriptor struct {
	OriginalOffset   int64
	RelativeOffset   int64
	StoreOffset      int64
	Flags            uint32
	AllocationBitmap uint32
}

const (
	blockFlagForwarder = 0x1
	blockFlagOverlay   = 0x2
	blockFlagNotUsed   = 0x4
)

// A Snapshot is a single volume shadow copy.
type Snapshot struct {
	StoreIdentifier [16]byte
	CreationTime    time.Time

	volume io.ReaderAt
	blocks map[int64]blockDescriptor
	next   *Snapshot
}

// GUID returns the store identifier in its usual mixed endian text form.
func (s *Snapshot) GUID() string {
	g := s.StoreIdentifier
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint16(g[4:6]),
		binary.LittleEndian.Uint16(g[6:8]),
		binary.BigEndian.Uint16(g[8:10]),
		g[10:16],
	)
}

// Enumerate reads the shadow copy metadata of a volume and returns its
// snapshots ordered from oldest to newest. Volumes without shadow copies
// return no snapshots and no error.
func Enumerate(volume io.ReaderAt) ([]*Snapshot, error) {
	headerData := make([]byte, 512)
	if _, err := volume.ReadAt(headerData, headerOffset); err != nil {
		// Volume too small for a shadow copy header.
		return nil, nil
	}

	var header volumeHeader
	if err := binary.Read(bytes.NewReader(headerData), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Identifier != volumeIdentifier || header.CatalogOffset == 0 {
		return nil, nil
	}

	creationTimes := map[[16]byte]time.Time{}
	storeEntries := map[[16]byte]catalogEntry3{}

	visited := map[int64]bool{}
	for offset := header.CatalogOffset; offset != 0 && !visited[offset]; {
		visited[offset] = true

		block := make([]byte, BlockSize)
		if _, err := volume.ReadAt(block, offset); err != nil {
			return nil, errors.Wrap(err, "could not read shadow copy catalog")
		}

		var catalogHeader recordHeader
		if err := binary.Read(bytes.NewReader(block[:recordHeaderSize]), binary.LittleEndian, &catalogHeader); err != nil {
			return nil, err
		}
		if catalogHeader.RecordType != recordTypeCatalog {
			return nil, errors.Errorf("unexpected record type %d in shadow copy catalog", catalogHeader.RecordType)
		}

		for entryOffset := recordHeaderSize; entryOffset+catalogEntrySize <= len(block); entryOffset += catalogEntrySize {
			entryData := bytes.NewReader(block[entryOffset : entryOffset+catalogEntrySize])

			switch binary.LittleEndian.Uint64(block[entryOffset:]) {
			case 2:
				var entry catalogEntry2
				if err := binary.Read(entryData, binary.LittleEndian, &entry); err != nil {
					return nil, err
				}
				creationTimes[entry.StoreIdentifier] = filetime(entry.CreationTime)
			case 3:
				var entry catalogEntry3
				if err := binary.Read(entryData, binary.LittleEndian, &entry); err != nil {
					return nil, err
				}
				storeEntries[entry.StoreIdentifier] = entry
			}
		}
		offset = catalogHeader.NextOffset
	}

	var snapshots []*Snapshot
	for identifier, entry := range storeEntries {
		blocks, err := readBlockList(volume, entry.StoreBlockListOffset)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &Snapshot{
			StoreIdentifier: identifier,
			CreationTime:    creationTimes[identifier],
			volume:          volume,
			blocks:          blocks,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreationTime.Before(snapshots[j].CreationTime)
	})
	for i := 0; i+1 < len(snapshots); i++ {
		snapshots[i].next = snapshots[i+1]
	}
	return snapshots, nil
}

// readBlockList walks the chained block list records of a store.
func readBlockList(volume io.ReaderAt, offset int64) (map[int64]blockDescriptor, error) {
	blocks := map[int64]blockDescriptor{}

	visited := map[int64]bool{}
	for offset != 0 && !visited[offset] {
		visited[offset] = true

		block := make([]byte, BlockSize)
		if _, err := volume.ReadAt(block, offset); err != nil {
			return nil, errors.Wrap(err, "could not read store block list")
		}

		var listHeader recordHeader
		if err := binary.Read(bytes.NewReader(block[:recordHeaderSize]), binary.LittleEndian, &listHeader); err != nil {
			return nil, err
		}

		reader := bytes.NewReader(block[recordHeaderSize:])
		for {
			var descriptor blockDescriptor
			if err := binary.Read(reader, binary.LittleEndian, &descriptor); err != nil {
				break
			}
			if descriptor.OriginalOffset == 0 && descriptor.StoreOffset == 0 {
				continue // unused slot
			}
			// Overlays patch single sectors and are not applied. They share
			// their offset with a regular descriptor and must never displace
			// it.
			if descriptor.Flags&(blockFlagNotUsed|blockFlagOverlay) != 0 {
				continue
			}
			blocks[descriptor.OriginalOffset] = descriptor
		}

		offset = listHeader.NextOffset
	}
	return blocks, nil
}

func filetime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	const windowsToUnixEpoch = 116444736000000000
	return time.Unix(0, (int64(ft)-windowsToUnixEpoch)*100).UTC()
}
