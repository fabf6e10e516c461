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

	"github.com/google/uuid"
)

// JSONElement is a single entry in the inventory database.
type JSONElement []byte

type Element map[string]interface{}

// File describes a single exported file, modeled after the STIX 2.1 File
// Object.
type File struct {
	ID         string                 `json:"id" structs:"id"`
	Artifact   string                 `json:"artifact,omitempty" structs:"artifact,omitempty"`
	Type       string                 `json:"type" structs:"type"`
	Hashes     map[string]interface{} `json:"hashes,omitempty" structs:"hashes,omitempty"`
	Size       float64                `json:"size,omitempty" structs:"size,omitempty"`
	Name       string                 `json:"name" structs:"name"`
	Ctime      string                 `json:"ctime,omitempty" structs:"ctime,omitempty"`
	Mtime      string                 `json:"mtime,omitempty" structs:"mtime,omitempty"`
	Atime      string                 `json:"atime,omitempty" structs:"atime,omitempty"`
	Origin     map[string]interface{} `json:"origin,omitempty" structs:"origin,omitempty"`
	ExportPath string                 `json:"export_path,omitempty" structs:"export_path,omitempty"`
	Errors     []interface{}          `json:"errors,omitempty" structs:"errors,omitempty"`
}

// NewFile creates a new File element.
func NewFile() *File {
	return &File{ID: "file--" + uuid.New().String(), Type: "file"}
}

// AddError adds an error string to a File and returns this File.
func (i *File) AddError(err string) *File {
	log.Print(err)
	i.Errors = append(i.Errors, err)
	return i
}
