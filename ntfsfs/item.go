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

package ntfsfs

import (
	"io"
	"os"
	"sort"
	"syscall"
	"time"

	"www.velocidex.com/golang/go-ntfs/parser"
)

// Item is a single open file or directory.
type Item struct {
	fs    *FS
	path  string
	entry *parser.MFT_ENTRY
	info  *Info

	data   parser.RangeReaderAt
	offset int64

	children []os.FileInfo
}

func (i *Item) Name() string { return i.path }

func (i *Item) Stat() (os.FileInfo, error) { return i.info, nil }

func (i *Item) Read(p []byte) (int, error) {
	n, err := i.ReadAt(p, i.offset)
	i.offset += int64(n)
	return n, err
}

func (i *Item) ReadAt(p []byte, off int64) (int, error) {
	if i.info.dir {
		return 0, syscall.EISDIR
	}
	if off >= i.info.size {
		return 0, io.EOF
	}
	if remaining := i.info.size - off; int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := i.data.ReadAt(p, off)
	if err == nil && n < len(p) {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

func (i *Item) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		i.offset = offset
	case io.SeekCurrent:
		i.offset += offset
	case io.SeekEnd:
		i.offset = i.info.size + offset
	default:
		return 0, syscall.EINVAL
	}
	return i.offset, nil
}

func (i *Item) Readdir(count int) ([]os.FileInfo, error) {
	if !i.info.dir {
		return nil, syscall.ENOTDIR
	}

	if i.children == nil {
		seen := map[string]bool{}
		for _, info := range parser.ListDir(i.fs.ntfs, i.entry) {
			if info.Name == "" || info.Name == "." || info.Name == ".." || seen[info.Name] {
				continue
			}
			seen[info.Name] = true
			i.children = append(i.children, &Info{
				name:  info.Name,
				size:  info.Size,
				dir:   info.IsDir,
				mtime: info.Mtime,
				atime: info.Atime,
				btime: info.Btime,
			})
		}
		sort.Slice(i.children, func(a, b int) bool {
			return i.children[a].Name() < i.children[b].Name()
		})
	}

	if count <= 0 {
		return i.children, nil
	}
	if len(i.children) == 0 {
		return nil, io.EOF
	}
	if count > len(i.children) {
		count = len(i.children)
	}
	batch := i.children[:count]
	i.children = i.children[count:]
	return batch, nil
}

func (i *Item) Readdirnames(n int) ([]string, error) {
	infos, err := i.Readdir(n)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

func (i *Item) Close() error { return nil }
func (i *Item) Sync() error  { return nil }

func (i *Item) Write([]byte) (int, error)          { return 0, syscall.EPERM }
func (i *Item) WriteAt([]byte, int64) (int, error) { return 0, syscall.EPERM }
func (i *Item) WriteString(string) (int, error)    { return 0, syscall.EPERM }
func (i *Item) Truncate(int64) error               { return syscall.EPERM }

// Info describes a file inside an NTFS volume, including the timestamps that
// os.FileInfo does not carry.
type Info struct {
	name  string
	size  int64
	dir   bool
	mtime time.Time
	atime time.Time
	btime time.Time
}

func (info *Info) Name() string { return info.name }
func (info *Info) Size() int64  { return info.size }
func (info *Info) Mode() os.FileMode {
	if info.dir {
		return os.ModeDir | 0555
	}
	return 0444
}
func (info *Info) ModTime() time.Time { return info.mtime }
func (info *Info) IsDir() bool        { return info.dir }
func (info *Info) Sys() interface{}   { return nil }

// AccessTime returns the last access time of the file.
func (info *Info) AccessTime() time.Time { return info.atime }

// CreationTime returns the birth time of the file.
func (info *Info) CreationTime() time.Time { return info.btime }
