/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gocollage/internal/config"
)

func (c *CLI) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration and manage the image server token",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(c.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "# %s\n%s", path, data)
			for _, key := range []string{"editor.grid_size", "editor.snap_threshold", "editor.zoom_pan_enabled", "images.base_url", "images.timeout_ms", "logging.level", "logging.format", "logging.source", "logging.file"} {
				if env, ok := config.EnvOverrideFor(key); ok {
					fmt.Fprintf(c.out, "# %s overridden by %s\n", key, env)
				}
			}
			if c.tok != "" {
				fmt.Fprintln(c.out, "# images token: set")
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-token <token>",
		Short: "Store the image server token in the OS keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok := strings.TrimSpace(args[0])
			if tok == "" {
				return fmt.Errorf("token is empty")
			}
			if err := config.Save(c.cfg, tok); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintln(c.out, "token stored")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete-token",
		Short: "Remove the image server token from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteToken(); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "token removed")
			return nil
		},
	})
	return cmd
}
