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
	"bytes"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewInvalidVolume(t *testing.T) {
	_, err := New(bytes.NewReader(make([]byte, 0x10000)))
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/":                    "/",
		"Windows":              "/Windows",
		"/Windows/System32/":   "/Windows/System32",
		"Windows\\System32":    "/Windows/System32",
		"/Windows/../$MFT":     "/$MFT",
		"//Windows//Prefetch/": "/Windows/Prefetch",
	}
	for name, want := range tests {
		assert.Equal(t, want, normalize(name), name)
	}
}

func TestOpenError(t *testing.T) {
	// missing entries stay detectable with os.IsNotExist
	missing := &os.PathError{Op: "open", Path: "/x", Err: openError(errors.New("SAM not found"))}
	assert.True(t, os.IsNotExist(missing))

	// read failures keep their cause and are not mistaken for missing files
	broken := errors.New("disk read failed")
	assert.Equal(t, broken, openError(broken))
	assert.False(t, os.IsNotExist(&os.PathError{Op: "open", Path: "/x", Err: openError(broken)}))
}

func TestReadOnly(t *testing.T) {
	fs := &FS{}

	_, err := fs.Create("/x")
	assert.Equal(t, syscall.EPERM, err)
	assert.Equal(t, syscall.EPERM, fs.Mkdir("/x", 0755))
	assert.Equal(t, syscall.EPERM, fs.MkdirAll("/x", 0755))
	assert.Equal(t, syscall.EPERM, fs.Remove("/x"))
	assert.Equal(t, syscall.EPERM, fs.RemoveAll("/x"))
	assert.Equal(t, syscall.EPERM, fs.Rename("/x", "/y"))
	assert.Equal(t, syscall.EPERM, fs.Chmod("/x", 0644))
	assert.Equal(t, syscall.EPERM, fs.Chtimes("/x", time.Now(), time.Now()))

	_, err = fs.OpenFile("/x", os.O_WRONLY, 0644)
	assert.Equal(t, syscall.EPERM, err)

	item := &Item{}
	_, err = item.Write([]byte("x"))
	assert.Equal(t, syscall.EPERM, err)
	_, err = item.WriteAt([]byte("x"), 0)
	assert.Equal(t, syscall.EPERM, err)
	_, err = item.WriteString("x")
	assert.Equal(t, syscall.EPERM, err)
	assert.Equal(t, syscall.EPERM, item.Truncate(0))
}

func TestInfo(t *testing.T) {
	mtime := time.Date(2019, 3, 12, 13, 44, 59, 0, time.UTC)
	atime := mtime.Add(time.Hour)
	btime := mtime.Add(-time.Hour)

	info := &Info{name: "SAM", size: 42, mtime: mtime, atime: atime, btime: btime}
	assert.Equal(t, "SAM", info.Name())
	assert.Equal(t, int64(42), info.Size())
	assert.Equal(t, os.FileMode(0444), info.Mode())
	assert.Equal(t, mtime, info.ModTime())
	assert.Equal(t, atime, info.AccessTime())
	assert.Equal(t, btime, info.CreationTime())
	assert.False(t, info.IsDir())

	dir := &Info{name: "config", dir: true}
	assert.True(t, dir.IsDir())
	assert.Equal(t, os.ModeDir|0555, dir.Mode())

	_, err := (&Item{info: dir}).ReadAt(make([]byte, 1), 0)
	assert.Equal(t, syscall.EISDIR, err)
	_, err = (&Item{info: info}).Readdir(-1)
	assert.Equal(t, syscall.ENOTDIR, err)
}
