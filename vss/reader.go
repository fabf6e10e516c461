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

package vss

// Reader exposes the point-in-time content of a snapshot as an io.ReaderAt.
type Reader struct {
	snapshot *Snapshot
}

// Reader returns a reader for the volume as it looked when the snapshot was
// taken.
func (s *Snapshot) Reader() *Reader {
	return &Reader{snapshot: s}
}

func (r *Reader) ReadAt(p []byte, offset int64) (int, error) {
	total := 0
	for total < len(p) {
		current := offset + int64(total)
		blockStart := current - current%BlockSize

		chunk := len(p) - total
		if remaining := blockStart + BlockSize - current; int64(chunk) > remaining {
			chunk = int(remaining)
		}

		source := r.snapshot.resolve(blockStart)
		n, err := r.snapshot.volume.ReadAt(p[total:total+chunk], source+(current-blockStart))
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close exists so the reader can be handed to libraries that manage the
// lifetime of their input.
func (r *Reader) Close() error {
	return nil
}

// resolve maps a block start offset in the snapshot to the volume offset
// holding its data. Blocks overwritten since the snapshot was taken were
// saved to a store, unchanged blocks come from the live volume. A block may
// have been saved by a newer store if it only changed later, so unresolved
// lookups continue there. A forwarder redirects the lookup to a different
// block in the next store. Overlay descriptors are dropped while reading the
// block lists, so every descriptor here holds saved data.
func (s *Snapshot) resolve(blockStart int64) int64 {
	offset := blockStart
	for store := s; store != nil; {
		descriptor, ok := store.blocks[offset]
		if !ok {
			store = store.next
			continue
		}

		if descriptor.Flags&blockFlagForwarder != 0 {
			offset = descriptor.StoreOffset
			store = store.next
			continue
		}
		return descriptor.StoreOffset
	}
	return offset
}
