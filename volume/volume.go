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

// Package volume turns an extraction source into a list of file systems to
// process. A directory is used as is, a raw disk image is probed for NTFS
// partitions and their volume shadow copies.
package volume

import (
	"fmt"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"www.velocidex.com/golang/go-ntfs/parser"

	"github.com/forensicanalysis/artifactextractor/ntfsfs"
	"github.com/forensicanalysis/artifactextractor/vss"
)

// ErrNoFileSystem is returned when a source image contains no file system the
// extraction can process.
var ErrNoFileSystem = errors.New("no supported file system found in source")

// Root is a single file system to extract artifacts from. Snapshot is set
// when the file system is the content of a volume shadow copy.
type Root struct {
	Description string
	FS          afero.Fs
	Snapshot    *vss.Snapshot
}

// Scanner finds the file systems of an extraction source.
type Scanner struct {
	source string
	file   *os.File
}

// NewScanner prepares a source, either a mounted directory or a raw disk
// image, for scanning.
func NewScanner(source string) (*Scanner, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open source %s", source)
	}

	scanner := &Scanner{source: source}
	if info.IsDir() {
		return scanner, nil
	}

	scanner.file, err = os.Open(source)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open source %s", source)
	}
	return scanner, nil
}

// Scan returns the file systems of the source. Live partitions come first,
// their shadow copies follow ordered from oldest to newest.
func (s *Scanner) Scan(withSnapshots bool) ([]Root, error) {
	if s.file == nil {
		return []Root{{
			Description: s.source,
			FS:          afero.NewBasePathFs(afero.NewOsFs(), s.source),
		}}, nil
	}

	partitions, err := findPartitions(s.file)
	if err != nil {
		return nil, err
	}

	var roots []Root
	for _, part := range partitions {
		partReader := &parser.OffsetReader{Offset: part.offset, Reader: s.file}

		fs, err := ntfsfs.New(partReader)
		if err != nil {
			log.Printf("could not parse %s: %v", part.description, err)
			continue
		}
		roots = append(roots, Root{Description: part.description, FS: fs})

		if !withSnapshots {
			continue
		}

		snapshots, err := vss.Enumerate(partReader)
		if err != nil {
			log.Printf("could not enumerate shadow copies of %s: %v", part.description, err)
			continue
		}
		for _, snapshot := range snapshots {
			snapshotFS, err := ntfsfs.New(snapshot.Reader())
			if err != nil {
				log.Printf("could not parse shadow copy %s: %v", snapshot.GUID(), err)
				continue
			}
			roots = append(roots, Root{
				Description: fmt.Sprintf("%s shadow copy %s", part.description, snapshot.GUID()),
				FS:          snapshotFS,
				Snapshot:    snapshot,
			})
		}
	}

	if len(roots) == 0 {
		return nil, ErrNoFileSystem
	}
	return roots, nil
}

func (s *Scanner) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
