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
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPartitionLBA = 128

func markNTFS(image []byte, offset int64) {
	copy(image[offset+3:], "NTFS    ")
}

func TestFindPartitionsBareVolume(t *testing.T) {
	image := make([]byte, 4096)
	markNTFS(image, 0)

	partitions, err := findPartitions(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, []partition{{offset: 0, description: "volume"}}, partitions)
}

func TestFindPartitionsMBR(t *testing.T) {
	image := make([]byte, (testPartitionLBA+8)*sectorSize)
	image[510], image[511] = 0x55, 0xaa

	entry := image[mbrTableOffset:]
	entry[4] = 0x07 // NTFS
	binary.LittleEndian.PutUint32(entry[8:12], testPartitionLBA)
	markNTFS(image, testPartitionLBA*sectorSize)

	partitions, err := findPartitions(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, []partition{{offset: testPartitionLBA * sectorSize, description: "p1"}}, partitions)
}

func TestFindPartitionsGPT(t *testing.T) {
	image := make([]byte, (testPartitionLBA+8)*sectorSize)

	// protective MBR
	image[510], image[511] = 0x55, 0xaa
	image[mbrTableOffset+4] = mbrTypeGPT
	binary.LittleEndian.PutUint32(image[mbrTableOffset+8:], 1)

	// GPT header at LBA 1
	header := image[sectorSize:]
	copy(header, "EFI PART")
	binary.LittleEndian.PutUint64(header[72:80], 2)   // entries at LBA 2
	binary.LittleEndian.PutUint32(header[80:84], 4)   // entry count
	binary.LittleEndian.PutUint32(header[84:88], 128) // entry size

	// first partition entry, the remaining three stay zeroed
	entry := image[2*sectorSize:]
	entry[0] = 1 // any non-zero partition type GUID
	binary.LittleEndian.PutUint64(entry[32:40], testPartitionLBA)
	markNTFS(image, testPartitionLBA*sectorSize)

	partitions, err := findPartitions(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Equal(t, []partition{{offset: testPartitionLBA * sectorSize, description: "p1"}}, partitions)
}

func TestFindPartitionsCorruptGPT(t *testing.T) {
	image := make([]byte, 8*sectorSize)
	image[510], image[511] = 0x55, 0xaa
	image[mbrTableOffset+4] = mbrTypeGPT
	binary.LittleEndian.PutUint32(image[mbrTableOffset+8:], 1)
	copy(image[sectorSize:], "EFI PART")

	// zero entry size must not crash the probe
	binary.LittleEndian.PutUint64(image[sectorSize+72:], 2)
	binary.LittleEndian.PutUint32(image[sectorSize+80:], 4)
	binary.LittleEndian.PutUint32(image[sectorSize+84:], 0)

	partitions, err := findPartitions(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Empty(t, partitions)

	// absurd entry count is rejected as well
	binary.LittleEndian.PutUint32(image[sectorSize+80:], 1<<30)
	binary.LittleEndian.PutUint32(image[sectorSize+84:], 128)

	partitions, err = findPartitions(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Empty(t, partitions)
}

func TestFindPartitionsNone(t *testing.T) {
	partitions, err := findPartitions(bytes.NewReader(make([]byte, 4096)))
	require.NoError(t, err)
	assert.Empty(t, partitions)

	// MBR without any NTFS partition
	image := make([]byte, 4096)
	image[510], image[511] = 0x55, 0xaa
	partitions, err = findPartitions(bytes.NewReader(image))
	require.NoError(t, err)
	assert.Empty(t, partitions)
}
