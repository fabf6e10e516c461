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

// Package ntfsfs provides a read-only afero.Fs on top of an NTFS volume.
// All parsing is done by www.velocidex.com/golang/go-ntfs, the volume only
// needs to be readable as an io.ReaderAt.
package ntfsfs

import (
	"io"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"www.velocidex.com/golang/go-ntfs/parser"
)

const (
	pageSize  = 0x1000
	cacheSize = 10000
)

// FS implements a read-only afero.Fs for a single NTFS volume.
type FS struct {
	ntfs *parser.NTFSContext
	root *parser.MFT_ENTRY
}

// volumeReader adds a no-op Close to any io.ReaderAt.
type volumeReader struct {
	io.ReaderAt
}

func (volumeReader) Close() error { return nil }

// New opens the NTFS volume in the given reader. The reader must start at
// the volume boot sector.
func New(volume io.ReaderAt) (*FS, error) {
	reader, err := parser.NewPagedReader(volumeReader{volume}, pageSize, cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "could not page volume")
	}

	ntfs, err := parser.GetNTFSContext(reader, 0)
	if err != nil {
		return nil, errors.Wrap(err, "could not open ntfs volume")
	}

	root, err := ntfs.GetMFT(5)
	if err != nil {
		return nil, errors.Wrap(err, "could not open mft root")
	}
	return &FS{ntfs: ntfs, root: root}, nil
}

func (fs *FS) Name() string { return "NTFSFS" }

func (fs *FS) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *FS) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, syscall.EPERM
	}

	name = normalize(name)
	entry, err := fs.open(name)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: openError(err)}
	}

	item := &Item{fs: fs, path: name, entry: entry, info: fs.stat(name, entry)}
	if !item.info.IsDir() {
		data, err := parser.GetDataForPath(fs.ntfs, strings.TrimPrefix(name, "/"))
		if err != nil {
			return nil, errors.Wrapf(err, "could not open data stream of %s", name)
		}
		item.data = data
		if item.info.size == 0 {
			item.info.size = parser.RangeSize(data)
		}
	}
	return item, nil
}

func (fs *FS) Stat(name string) (os.FileInfo, error) {
	name = normalize(name)
	entry, err := fs.open(name)
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: openError(err)}
	}
	return fs.stat(name, entry), nil
}

// openError keeps missing files detectable with os.IsNotExist and preserves
// every other parser failure, so unreadable files are reported as such.
func openError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "not found") {
		return os.ErrNotExist
	}
	return err
}

func (fs *FS) open(name string) (*parser.MFT_ENTRY, error) {
	if name == "/" {
		return fs.root, nil
	}
	return fs.root.Open(fs.ntfs, strings.TrimPrefix(name, "/"))
}

func (fs *FS) stat(name string, entry *parser.MFT_ENTRY) *Info {
	info := &Info{name: path.Base(name)}
	if name == "/" {
		info.dir = true
	}

	stats := parser.Stat(fs.ntfs, entry)
	if len(stats) > 0 && stats[0] != nil {
		info.size = stats[0].Size
		info.dir = stats[0].IsDir
		info.mtime = stats[0].Mtime
		info.atime = stats[0].Atime
		info.btime = stats[0].Btime
	}
	return info
}

/* ################################
#   Unsupported modifications
################################ */

func (fs *FS) Create(string) (afero.File, error)          { return nil, syscall.EPERM }
func (fs *FS) Mkdir(string, os.FileMode) error            { return syscall.EPERM }
func (fs *FS) MkdirAll(string, os.FileMode) error         { return syscall.EPERM }
func (fs *FS) Remove(string) error                        { return syscall.EPERM }
func (fs *FS) RemoveAll(string) error                     { return syscall.EPERM }
func (fs *FS) Rename(string, string) error                { return syscall.EPERM }
func (fs *FS) Chmod(string, os.FileMode) error            { return syscall.EPERM }
func (fs *FS) Chown(string, int, int) error               { return syscall.EPERM }
func (fs *FS) Chtimes(string, time.Time, time.Time) error { return syscall.EPERM }

// normalize turns a name into a clean, absolute, slash separated path.
func normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return path.Clean(name)
}
