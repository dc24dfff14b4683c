/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"github.com/spf13/cobra"

	"gocollage/internal/imageserver"
)

func (c *CLI) newServeCmd() *cobra.Command {
	var addr, token string
	var open bool
	cmd := &cobra.Command{
		Use:   "serve-images <dir>",
		Short: "Serve a directory of images over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := imageserver.OpenCatalog(args[0])
			if err != nil {
				return err
			}
			defer cat.Close()
			if token == "" && !open {
				token = c.tok
			}
			return imageserver.ListenAndServe(cmd.Context(), addr, cat, token)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":5000", "listen address")
	cmd.Flags().StringVar(&token, "token", "", "bearer token required by /api (default: the stored images token)")
	cmd.Flags().BoolVar(&open, "no-auth", false, "serve without a token even if one is stored")
	return cmd
}
