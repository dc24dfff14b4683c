/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gocollage/internal/crash"
)

func (c *CLI) newImportCmd() *cobra.Command {
	var out outputOpts
	var strict bool
	cmd := &cobra.Command{
		Use:   "import <records.json>",
		Short: "Place a batch of images from an import file and export the template",
		Long: `The import file is a JSON list of {imageUrl, x, y, width, height, rotation}
records in canvas pixels. A malformed file is rejected as a whole. Records whose
image fails to load are reported and skipped unless --strict is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			s, err := c.newSession()
			if err != nil {
				return err
			}
			defer s.Close()
			defer crash.Recover(crash.Guard{Session: s, Dir: out.outDir})

			var failed []error
			n, err := s.Import(data, func(id string, err error) {
				if err != nil {
					failed = append(failed, err)
				}
			})
			if err != nil {
				return err
			}
			if err := s.Flush(cmd.Context()); err != nil {
				return err
			}
			for _, e := range failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", e)
			}
			if strict && len(failed) > 0 {
				return fmt.Errorf("%d of %d images failed to load: %w", len(failed), n, errors.Join(failed...))
			}
			return c.export(s, "template_imported", out.batch(args[0]))
		},
	}
	out.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "fail if any image cannot be loaded")
	return cmd
}
