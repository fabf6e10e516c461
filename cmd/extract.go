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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/artifactextractor"
	"github.com/forensicanalysis/artifactextractor/volume"
)

const inventoryName = "collection.db"

// Extract is the artifactextractor root command. It copies all catalogue
// artifacts from a disk image or a mounted directory into the destination
// directory.
func Extract() *cobra.Command {
	var definitions string
	var skipShadowCopies bool
	var noInventory bool

	extractCommand := &cobra.Command{
		Use:   "artifactextractor <image-or-directory> <destination>",
		Short: "Extract forensic artifacts from a disk image or a mounted directory",
		Args:  requireSourceAndDestination,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return extract(ctx, args[0], args[1], definitions, skipShadowCopies, noInventory)
		},
	}
	extractCommand.Flags().StringVar(&definitions, "artifact-definitions", "",
		"yaml file with additional artifact definitions")
	extractCommand.Flags().BoolVar(&skipShadowCopies, "skip-shadow-copies", false,
		"only process the current state of each volume")
	extractCommand.Flags().BoolVar(&noInventory, "no-inventory", false,
		"do not write a "+inventoryName)
	return extractCommand
}

func extract(ctx context.Context, source, destination, definitions string, skipShadowCopies, noInventory bool) error {
	catalogue := artifactextractor.DefaultCatalogue()
	if definitions != "" {
		var err error
		catalogue, err = artifactextractor.LoadCatalogue(afero.NewOsFs(), definitions)
		if err != nil {
			return err
		}
	}

	scanner, err := volume.NewScanner(source)
	if err != nil {
		return err
	}
	defer scanner.Close()

	roots, err := scanner.Scan(!skipShadowCopies)
	if err != nil {
		return err
	}

	var inventory *artifactextractor.Inventory
	if !noInventory {
		inventory, err = artifactextractor.NewInventory(filepath.Join(destination, inventoryName))
		if err != nil {
			return err
		}
		defer inventory.Close()
	}

	destFS := afero.NewBasePathFs(afero.NewOsFs(), destination)
	return artifactextractor.NewExtractor(destFS, catalogue, inventory).ExtractAll(ctx, roots)
}

func requireSourceAndDestination(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("requires an image or directory and a destination directory")
	}
	if info, err := os.Stat(args[1]); err != nil || !info.IsDir() {
		return fmt.Errorf("destination %s is not an existing directory", args[1])
	}
	return nil
}
