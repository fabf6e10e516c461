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
	"crypto/md5"  // #nosec
	"crypto/sha1" // #nosec
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"

	"github.com/forensicanalysis/artifactextractor/spooled"
)

const exportBufferSize = 32768

// Files larger than this are spooled to a temporary file instead of memory
// while their content hash is computed.
const spoolMaxSize = 32 << 20

// exportFile copies a single file into the destination tree. The content is
// spooled and hashed first, duplicates of already exported content at the
// same original location are dropped without touching the destination. Copy
// errors are best effort, they are logged on the inventory element only.
func (e *Extractor) exportFile(fs afero.Fs, artifact Artifact, location, outPath, snapshotDir string) {
	src, err := fs.Open(location)
	if err != nil {
		log.Printf("cannot open %s: %v", location, err)
		return
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		log.Printf("cannot stat %s: %v", location, err)
		return
	}

	element := NewFile()
	element.Name = path.Base(location)
	element.Artifact = artifact.Category
	element.Origin = map[string]interface{}{"path": location}
	if snapshotDir != "" {
		element.Origin["snapshot"] = snapshotDir
	}
	setElementTimes(element, info)

	buffer, teardown := spooled.New(spoolMaxSize)
	defer teardown() // nolint:errcheck

	dedupeHash := blake3.New()
	md5Hash := md5.New()   // #nosec
	sha1Hash := sha1.New() // #nosec

	size, err := io.CopyBuffer(
		io.MultiWriter(buffer, dedupeHash, md5Hash, sha1Hash),
		src, make([]byte, exportBufferSize),
	)
	if err != nil {
		element.AddError(fmt.Sprintf("could not read %s: %s", location, err))
		e.record(element)
		return
	}

	digest := fmt.Sprintf("%x", dedupeHash.Sum(nil))
	if e.seen(location, digest) {
		return
	}

	element.Size = float64(size)
	element.Hashes = map[string]interface{}{
		"MD5":   fmt.Sprintf("%x", md5Hash.Sum(nil)),
		"SHA-1": fmt.Sprintf("%x", sha1Hash.Sum(nil)),
	}

	if err := e.write(buffer, outPath); err != nil {
		element.AddError(fmt.Sprintf("could not write %s: %s", outPath, err))
	} else {
		e.remember(location, digest)
		element.ExportPath = strings.TrimPrefix(outPath, "/")
		restoreTimestamps(e.destFS, outPath, info)
	}
	e.record(element)
}

func (e *Extractor) write(src io.Reader, outPath string) error {
	if err := e.destFS.MkdirAll(path.Dir(outPath), 0755); err != nil {
		return err
	}

	out, err := e.destFS.Create(outPath)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}

// seen reports whether content with the given digest was already exported
// for this original location.
func (e *Extractor) seen(location, digest string) bool {
	for _, known := range e.extracted[location] {
		if known == digest {
			return true
		}
	}
	return false
}

// remember marks a digest as exported for a location. Only successfully
// written content is remembered, a failed write may be retried when the same
// content shows up in another root.
func (e *Extractor) remember(location, digest string) {
	e.extracted[location] = append(e.extracted[location], digest)
}

func (e *Extractor) record(element *File) {
	if e.inventory == nil {
		return
	}
	if _, err := e.inventory.InsertStruct(element); err != nil {
		log.Printf("could not record %s: %v", element.Name, err)
	}
}
