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

package artifactextractor

import (
	"log"
	"os"
	"time"

	"github.com/spf13/afero"
)

const elementTimeFormat = "2006-01-02T15:04:05.000Z"

// accessTimer and creationTimer expose the extra NTFS timestamps that
// os.FileInfo does not carry. The ntfsfs file infos implement both.
type accessTimer interface{ AccessTime() time.Time }
type creationTimer interface{ CreationTime() time.Time }

// restoreTimestamps sets the original access and modification time on an
// exported copy. The creation time can only be restored on Windows. Failures
// are logged, an exported copy with fresh timestamps is still useful.
func restoreTimestamps(fs afero.Fs, name string, info os.FileInfo) {
	mtime := info.ModTime()
	atime := mtime
	if at, ok := info.(accessTimer); ok && !at.AccessTime().IsZero() {
		atime = at.AccessTime()
	}

	if err := fs.Chtimes(name, atime, mtime); err != nil {
		log.Printf("cannot restore timestamps of %s: %v", name, err)
		return
	}

	ct, ok := info.(creationTimer)
	if !ok || ct.CreationTime().IsZero() {
		return
	}
	if realPath, ok := osPath(fs, name); ok {
		if err := setFileCreationTime(realPath, ct.CreationTime()); err != nil {
			log.Printf("cannot restore creation time of %s: %v", name, err)
		}
	}
}

// osPath resolves a name to a real operating system path if the file system
// is backed by one.
func osPath(fs afero.Fs, name string) (string, bool) {
	switch fs := fs.(type) {
	case *afero.BasePathFs:
		realPath, err := fs.RealPath(name)
		if err != nil {
			return "", false
		}
		return realPath, true
	case *afero.OsFs:
		return name, true
	}
	return "", false
}

func setElementTimes(element *File, info os.FileInfo) {
	element.Mtime = info.ModTime().UTC().Format(elementTimeFormat)
	if at, ok := info.(accessTimer); ok && !at.AccessTime().IsZero() {
		element.Atime = at.AccessTime().UTC().Format(elementTimeFormat)
	}
	if ct, ok := info.(creationTimer); ok && !ct.CreationTime().IsZero() {
		element.Ctime = ct.CreationTime().UTC().Format(elementTimeFormat)
	}
}
