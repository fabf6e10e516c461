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

//go:build windows

package artifactextractor

import (
	"time"

	"golang.org/x/sys/windows"
)

// setFileCreationTime restores the birth timestamp of an exported copy.
func setFileCreationTime(name string, created time.Time) error {
	pathPointer, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return err
	}

	handle, err := windows.CreateFile(
		pathPointer, windows.FILE_WRITE_ATTRIBUTES,
		windows.FILE_SHARE_WRITE, nil, windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL, 0,
	)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle) // nolint:errcheck

	fileTime := windows.NsecToFiletime(created.UnixNano())
	return windows.SetFileTime(handle, &fileTime, nil, nil)
}
