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
	"log"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/forensicanalysis/fsdoublestar"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/forensicanalysis/artifactextractor/volume"
)

const userProfileRoot = "/Users"

// Profile directories that never contain user artifacts.
var skippedProfiles = map[string]bool{
	"All Users":        true,
	"Default":          true,
	"Default User":     true,
	"Default.migrated": true,
	"Public":           true,
}

// An Extractor copies catalogue artifacts from volume roots into a
// destination file system. Identical content found at the same original
// location in multiple roots is only exported once.
type Extractor struct {
	destFS    afero.Fs
	catalogue Catalogue
	inventory *Inventory
	extracted map[string][]string
}

// NewExtractor creates an Extractor that writes into destFS. The inventory
// may be nil, in which case no collection log is kept.
func NewExtractor(destFS afero.Fs, catalogue Catalogue, inventory *Inventory) *Extractor {
	return &Extractor{
		destFS:    destFS,
		catalogue: catalogue,
		inventory: inventory,
		extracted: map[string][]string{},
	}
}

// ExtractAll processes all roots, live volumes before shadow copies, so the
// current state of every artifact is the one kept at the plain output path.
func (e *Extractor) ExtractAll(ctx context.Context, roots []volume.Root) error {
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].Snapshot == nil && roots[j].Snapshot != nil
	})

	for _, root := range roots {
		if err := e.ExtractRoot(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

// ExtractRoot copies all catalogue artifacts found in a single root.
func (e *Extractor) ExtractRoot(ctx context.Context, root volume.Root) error {
	snapshotDir := ""
	if root.Snapshot != nil {
		snapshotDir = snapshotDirName(root.Snapshot.CreationTime)
		log.Printf("processing %s (%s)", root.Description, root.Snapshot.CreationTime.UTC().Format("2006-01-02 15:04:05"))
	} else {
		log.Printf("processing %s", root.Description)
	}

	for _, artifact := range e.catalogue.Artifacts {
		if artifact.PerUser {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		e.extractArtifact(root.FS, artifact, artifact.Location, "", snapshotDir)
	}

	users, err := userProfiles(root.FS)
	if err != nil {
		// No /Users directory, nothing more to collect from this root.
		return nil
	}

	for _, user := range users {
		for _, artifact := range e.catalogue.Artifacts {
			if !artifact.PerUser {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			location := path.Join(userProfileRoot, user, artifact.Location)
			e.extractArtifact(root.FS, artifact, location, user, snapshotDir)
		}
	}
	return nil
}

func (e *Extractor) extractArtifact(fs afero.Fs, artifact Artifact, location, user, snapshotDir string) {
	if !strings.ContainsAny(location, "*?[") {
		e.extractPath(fs, artifact, location, user, snapshotDir)
		return
	}

	matches, err := fsdoublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(fs, "/")), location)
	if err != nil {
		log.Printf("cannot resolve %s: %v", location, err)
		return
	}
	for _, match := range matches {
		e.extractPath(fs, artifact, path.Clean("/"+match), user, snapshotDir)
	}
}

func (e *Extractor) extractPath(fs afero.Fs, artifact Artifact, location, user, snapshotDir string) {
	info, err := fs.Stat(location)
	if err != nil {
		if !os.IsNotExist(errors.Cause(err)) {
			log.Printf("cannot access %s: %v", location, err)
		}
		return
	}

	outDir := outputDir(artifact, user, snapshotDir)
	if info.IsDir() {
		e.exportDirectory(fs, artifact, location, outDir, snapshotDir)
	} else {
		e.exportFile(fs, artifact, location, path.Join(outDir, path.Base(location)), snapshotDir)
	}
}

// exportDirectory copies a directory artifact recursively.
func (e *Extractor) exportDirectory(fs afero.Fs, artifact Artifact, srcDir, outDir, snapshotDir string) {
	infos, err := afero.ReadDir(fs, srcDir)
	if err != nil {
		log.Printf("cannot list %s: %v", srcDir, err)
		return
	}

	for _, info := range infos {
		src := path.Join(srcDir, info.Name())
		if info.IsDir() {
			e.exportDirectory(fs, artifact, src, path.Join(outDir, info.Name()), snapshotDir)
			continue
		}
		e.exportFile(fs, artifact, src, path.Join(outDir, info.Name()), snapshotDir)
	}
}

// outputDir assembles the destination folder for an artifact. Shadow copy
// content goes into a subfolder named after the snapshot creation time. User
// artifacts keep the profile name in the path.
func outputDir(artifact Artifact, user, snapshotDir string) string {
	out := path.Clean("/" + artifact.Category)
	if artifact.Directory {
		if artifact.PerUser {
			out = path.Join(out, user)
		}
		if snapshotDir != "" {
			out = path.Join(out, snapshotDir)
		}
		return out
	}

	if snapshotDir != "" {
		out = path.Join(out, snapshotDir)
	}
	if artifact.PerUser {
		out = path.Join(out, "Users", user)
	}
	return out
}

func userProfiles(fs afero.Fs) ([]string, error) {
	infos, err := afero.ReadDir(fs, userProfileRoot)
	if err != nil {
		return nil, err
	}

	var users []string
	for _, info := range infos {
		if !info.IsDir() || skippedProfiles[info.Name()] {
			continue
		}
		users = append(users, info.Name())
	}
	return users, nil
}

// snapshotDirName turns a shadow copy creation time into a folder name, e.g.
// "2019-03-12@134459".
func snapshotDirName(created time.Time) string {
	name := created.UTC().Format("2006-01-02 15:04:05")
	name = strings.ReplaceAll(name, ":", "")
	return strings.ReplaceAll(name, " ", "@")
}
