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
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestInventory(t *testing.T) {
	inventory, err := NewInventory(":memory:")
	require.NoError(t, err)

	element := NewFile()
	element.Name = "SAM"
	element.Artifact = "Registry"
	element.ExportPath = "Registry/SAM"
	element.Hashes = map[string]interface{}{"MD5": "d41d8cd98f00b204e9800998ecf8427e"}

	id, err := inventory.InsertStruct(element)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "file--"), id)

	elements, err := inventory.All()
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "file", ElementType(elements[0]))
	assert.Equal(t, "SAM", gjson.GetBytes(elements[0], "name").String())

	selected, err := inventory.Select([]map[string]string{{"artifact": "Registry"}})
	require.NoError(t, err)
	assert.Len(t, selected, 1)

	selected, err = inventory.Select([]map[string]string{{"artifact": "OSLogs"}})
	require.NoError(t, err)
	assert.Len(t, selected, 0)

	require.NoError(t, inventory.Close())
}

func TestInventoryInsert(t *testing.T) {
	inventory, err := NewInventory(":memory:")
	require.NoError(t, err)
	defer inventory.Close()

	// elements without a type are rejected
	_, err = inventory.Insert(JSONElement(`{"name": "x"}`))
	assert.Error(t, err)

	// elements without an id get one assigned
	id, err := inventory.Insert(JSONElement(`{"type": "file", "name": "x"}`))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "file--"), id)

	_, err = inventory.Insert(JSONElement(`no json`))
	assert.Error(t, err)
}

func TestOpenInventory(t *testing.T) {
	url := filepath.Join(t.TempDir(), "collection.db")

	inventory, err := NewInventory(url)
	require.NoError(t, err)
	_, err = inventory.InsertStruct(NewFile())
	require.NoError(t, err)
	require.NoError(t, inventory.Close())

	inventory, err = OpenInventory(url)
	require.NoError(t, err)
	elements, err := inventory.All()
	require.NoError(t, err)
	assert.Len(t, elements, 1)
	require.NoError(t, inventory.Close())
}

func TestElementType(t *testing.T) {
	assert.Equal(t, "file", ElementType(JSONElement(`{"type": "file"}`)))
	assert.Equal(t, "", ElementType(JSONElement(`{}`)))
}

func TestFlatten(t *testing.T) {
	flat, err := flatten(map[string]interface{}{
		"name": "SAM",
		"origin": map[string]interface{}{
			"path": "/Windows/System32/config/SAM",
		},
		"errors": []interface{}{"first", "second"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"name":        "SAM",
		"origin.path": "/Windows/System32/config/SAM",
		"errors.0":    "first",
		"errors.1":    "second",
	}, flat)
}
