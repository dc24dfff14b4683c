/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli implements the gocollage command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"gocollage/internal/config"
	"gocollage/internal/imageload"
	applog "gocollage/internal/log"
	"gocollage/internal/session"
	"gocollage/internal/telemetry"
	"gocollage/internal/version"
)

// CLI carries what every command needs once the root pre-run has loaded
// the configuration.
type CLI struct {
	out io.Writer
	cfg config.AppConfig
	tok string

	verbose bool
	// newLoader is swapped in tests.
	newLoader func(config.ImagesConfig, string) imageload.Loader
}

func New(out io.Writer) *CLI {
	return &CLI{
		out: out,
		newLoader: func(cfg config.ImagesConfig, token string) imageload.Loader {
			return imageload.New(cfg, token)
		},
	}
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gocollage",
		Short:         "Build collage templates from layout scripts",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetOut(c.out)
	root.SetVersionTemplate("gocollage {{.Version}}\n")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.newVersionCmd())
	root.AddCommand(c.newBuildCmd())
	root.AddCommand(c.newImportCmd())
	root.AddCommand(c.newServeCmd())
	root.AddCommand(c.newConfigCmd())
	return root
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	defer telemetry.Default().Flush(context.Background())
	return New(os.Stdout).RootCommand().ExecuteContext(ctx)
}

func (c *CLI) setup() error {
	cfg, tok, err := config.Load()
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	}
	if c.verbose {
		opts.Level = "debug"
	}
	applog.Init(opts)
	if err != nil {
		// keep going on defaults, the user can fix the file later
		applog.WithComponent("cli").Warn("config file ignored", slog.Any("err", err))
	}
	c.cfg, c.tok = cfg, tok
	return nil
}

func (c *CLI) newSession() (*session.Session, error) {
	s, err := session.New(c.cfg.Editor, c.newLoader(c.cfg.Images, c.tok))
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return s, nil
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.out, "gocollage %s\n", version.String())
		},
	}
}
