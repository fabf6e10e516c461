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
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/forensicanalysis/artifactextractor/volume"
	"github.com/forensicanalysis/artifactextractor/vss"
)

func testFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0644))
	}
	return fs
}

func TestExtractAll(t *testing.T) {
	live := testFS(t, map[string]string{
		"/Windows/System32/config/SAM":          "registry sam",
		"/Windows/Tasks/update.job":             "job",
		"/Windows/Prefetch/CMD.EXE-087B4001.pf": "pf1",
		"/Windows/Prefetch/ReadyBoot/Trace1.fx": "pf2",
		"/Users/alice/NTUSER.DAT":               "ntuser live",
		"/Users/Default/NTUSER.DAT":             "default ntuser",
	})
	snapshot := testFS(t, map[string]string{
		"/Windows/System32/config/SAM": "registry sam", // unchanged since the snapshot
		"/Users/alice/NTUSER.DAT":      "ntuser old",
	})

	created := time.Date(2019, 3, 12, 13, 44, 59, 0, time.UTC)
	roots := []volume.Root{
		// deliberately out of order, live volumes must be processed first
		{Description: "p1 shadow copy", FS: snapshot, Snapshot: &vss.Snapshot{CreationTime: created}},
		{Description: "p1", FS: live},
	}

	dest := afero.NewMemMapFs()
	extractor := NewExtractor(dest, DefaultCatalogue(), nil)
	require.NoError(t, extractor.ExtractAll(context.Background(), roots))

	for _, expected := range []string{
		"/Registry/SAM",
		"/MRU/Prog/tasks/update.job",
		"/MRU/Prog/prefetch/CMD.EXE-087B4001.pf",
		"/MRU/Prog/prefetch/ReadyBoot/Trace1.fx",
		"/Registry/Users/alice/NTUSER.DAT",
		"/Registry/2019-03-12@134459/Users/alice/NTUSER.DAT",
	} {
		exists, err := afero.Exists(dest, expected)
		require.NoError(t, err)
		assert.True(t, exists, expected)
	}

	// the live state wins the plain output path
	content, err := afero.ReadFile(dest, "/Registry/Users/alice/NTUSER.DAT")
	require.NoError(t, err)
	assert.Equal(t, "ntuser live", string(content))

	// unchanged content is not duplicated into the snapshot folder
	exists, err := afero.Exists(dest, "/Registry/2019-03-12@134459/SAM")
	require.NoError(t, err)
	assert.False(t, exists)

	// default profiles are never collected
	exists, err = afero.Exists(dest, "/Registry/Users/Default/NTUSER.DAT")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExtractAllCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	live := testFS(t, map[string]string{"/Windows/System32/config/SAM": "sam"})
	extractor := NewExtractor(afero.NewMemMapFs(), DefaultCatalogue(), nil)

	err := extractor.ExtractAll(ctx, []volume.Root{{Description: "p1", FS: live}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractRootInventory(t *testing.T) {
	inventory, err := NewInventory(":memory:")
	require.NoError(t, err)
	defer inventory.Close()

	live := testFS(t, map[string]string{"/Windows/System32/config/SAM": "registry sam"})
	extractor := NewExtractor(afero.NewMemMapFs(), DefaultCatalogue(), inventory)
	require.NoError(t, extractor.ExtractRoot(context.Background(), volume.Root{Description: "p1", FS: live}))

	elements, err := inventory.All()
	require.NoError(t, err)
	require.Len(t, elements, 1)

	element := elements[0]
	assert.Equal(t, "file", ElementType(element))
	assert.Equal(t, "SAM", gjson.GetBytes(element, "name").String())
	assert.Equal(t, "Registry", gjson.GetBytes(element, "artifact").String())
	assert.Equal(t, "Registry/SAM", gjson.GetBytes(element, "export_path").String())
	assert.Equal(t, "/Windows/System32/config/SAM", gjson.GetBytes(element, "origin.path").String())
	assert.Equal(t, float64(len("registry sam")), gjson.GetBytes(element, "size").Float())
	assert.NotEmpty(t, gjson.GetBytes(element, "hashes.MD5").String())
	assert.NotEmpty(t, gjson.GetBytes(element, `hashes.SHA-1`).String())
}

func TestOutputDir(t *testing.T) {
	tests := []struct {
		name        string
		artifact    Artifact
		user        string
		snapshotDir string
		want        string
	}{
		{"file", Artifact{Category: "Registry"}, "", "", "/Registry"},
		{"file in snapshot", Artifact{Category: "Registry"}, "", "2019-03-12@134459", "/Registry/2019-03-12@134459"},
		{"user file", Artifact{Category: "Registry", PerUser: true}, "alice", "", "/Registry/Users/alice"},
		{"user file in snapshot", Artifact{Category: "Registry", PerUser: true}, "alice", "2019-03-12@134459",
			"/Registry/2019-03-12@134459/Users/alice"},
		{"directory", Artifact{Category: "MRU/Prog/prefetch", Directory: true}, "", "", "/MRU/Prog/prefetch"},
		{"directory in snapshot", Artifact{Category: "MRU/Prog/prefetch", Directory: true}, "", "2019-03-12@134459",
			"/MRU/Prog/prefetch/2019-03-12@134459"},
		{"user directory", Artifact{Category: "MRU/Files/lnk", Directory: true, PerUser: true}, "alice", "",
			"/MRU/Files/lnk/alice"},
		{"user directory in snapshot", Artifact{Category: "MRU/Files/lnk", Directory: true, PerUser: true}, "alice",
			"2019-03-12@134459", "/MRU/Files/lnk/alice/2019-03-12@134459"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outputDir(tt.artifact, tt.user, tt.snapshotDir))
		})
	}
}

func TestUserProfiles(t *testing.T) {
	fs := testFS(t, map[string]string{
		"/Users/alice/NTUSER.DAT":   "a",
		"/Users/bob/NTUSER.DAT":     "b",
		"/Users/Default/NTUSER.DAT": "d",
		"/Users/Public/desktop.ini": "p",
	})

	users, err := userProfiles(fs)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	_, err = userProfiles(afero.NewMemMapFs())
	assert.Error(t, err)
}

func TestSnapshotDirName(t *testing.T) {
	created := time.Date(2019, 3, 12, 13, 44, 59, 0, time.UTC)
	assert.Equal(t, "2019-03-12@134459", snapshotDirName(created))
}

func TestSeen(t *testing.T) {
	e := NewExtractor(afero.NewMemMapFs(), Catalogue{}, nil)

	assert.False(t, e.seen("/Windows/System32/config/SAM", "aaaa"))
	e.remember("/Windows/System32/config/SAM", "aaaa")
	assert.True(t, e.seen("/Windows/System32/config/SAM", "aaaa"))
	assert.False(t, e.seen("/Windows/System32/config/SAM", "bbbb"))
	assert.False(t, e.seen("/Windows/System32/config/SYSTEM", "aaaa"))
}

func TestFailedWriteIsRetried(t *testing.T) {
	location := "/Windows/System32/config/SAM"
	src := testFS(t, map[string]string{location: "registry sam"})
	artifact := Artifact{Location: location, Category: "Registry"}

	// a failed write must not mark the content as exported
	e := NewExtractor(afero.NewReadOnlyFs(afero.NewMemMapFs()), Catalogue{}, nil)
	e.exportFile(src, artifact, location, "/Registry/SAM", "")
	assert.Empty(t, e.extracted)

	// identical content from a later root is exported once writes succeed
	dest := afero.NewMemMapFs()
	e.destFS = dest
	e.exportFile(src, artifact, location, "/Registry/2019-03-12@134459/SAM", "2019-03-12@134459")

	exists, err := afero.Exists(dest, "/Registry/2019-03-12@134459/SAM")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Len(t, e.extracted[location], 1)
}
