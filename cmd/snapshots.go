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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/artifactextractor/volume"
)

// Snapshots is the artifactextractor snapshots subcommand. It lists the
// volume shadow copies found in a disk image without extracting anything.
func Snapshots() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots <image>",
		Short: "List the volume shadow copies of a disk image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scanner, err := volume.NewScanner(args[0])
			if err != nil {
				return err
			}
			defer scanner.Close()

			roots, err := scanner.Scan(true)
			if err != nil {
				return err
			}

			for _, root := range roots {
				if root.Snapshot == nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
					root.Snapshot.GUID(),
					root.Snapshot.CreationTime.UTC().Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}
}
