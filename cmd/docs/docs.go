// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	pmerge "portage.dev/x/pmerge/cmd/pmerge/cmd"
	"portage.dev/x/pmerge/pkg/app"
	"portage.dev/x/pmerge/pkg/buildinfo"
	"portage.dev/x/pmerge/pkg/config"
	"portage.dev/x/pmerge/pkg/utils"
)

func main() {
	ctx, cancelFn := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancelFn()

	if err := getDocsCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func getDocsCmd() *cobra.Command {
	var format string

	docsCmd := &cobra.Command{
		Use:   "docs <output dir>",
		Short: "generate the pmerge CLI reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := genDocs(cmd.Context(), dir, format); err != nil {
				cmd.SilenceUsage = true
				return err
			}
			cmd.Printf("successfully generated at %s\n", dir)
			return nil
		},
	}

	docsCmd.Flags().StringVar(&format, "format", "", "(required) md, rst or man")
	docsCmd.MarkFlagRequired("format")

	return docsCmd
}

func genDocs(ctx context.Context, dir string, format string) error {
	if format != "md" && format != "rst" && format != "man" {
		return fmt.Errorf("only md, rst or man are supported")
	}

	tmp, deleteFn, err := utils.MkdirTemp("", "")
	if err != nil {
		return err
	}
	defer func() { _ = deleteFn() }()

	// an empty home keeps the local configuration out of the defaults shown
	if err := os.Setenv(config.HomeEnvVar, tmp); err != nil {
		return err
	}

	root, err := pmerge.RootCmd(ctx, &app.Pmerge{OsArgs: []string{pmerge.PmergeName}})
	if err != nil {
		return err
	}
	root.DisableAutoGenTag = true

	if err := utils.EnsureDirs(dir); err != nil {
		return err
	}

	switch format {
	case "rst":
		if err := doc.GenReSTTreeCustom(root, dir, prependRSTHeader, linkHandler); err != nil {
			return err
		}
		return generateTOC(dir)
	case "man":
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   strings.ToUpper(pmerge.PmergeName),
			Section: "1",
			Source:  pmerge.PmergeName + " " + buildinfo.GetVersion(),
		}, dir)
	default:
		return doc.GenMarkdownTreeCustom(root, dir, prependFrontMatter, func(s string) string {
			return s
		})
	}
}

func title(filename, ext string) string {
	cmdKey := strings.TrimSuffix(filepath.Base(filename), ext)
	return strings.ReplaceAll(cmdKey, "_", " ")
}

// add a Jekyll/Just-the-Docs front-matter block
func prependFrontMatter(filename string) string {
	return fmt.Sprintf(`---
layout: default
title: %s
parent: CLI reference
---

`, title(filename, ".md"))
}

func prependRSTHeader(filename string) string {
	t := title(filename, ".rst")
	return fmt.Sprintf("%s\n%s\n\n", t, strings.Repeat("=", len(t)))
}

func linkHandler(name, ref string) string {
	return fmt.Sprintf(":ref:`%s <%s>`", name, ref)
}

func generateTOC(outputDir string) error {
	tocHeader := `.. toctree::
   :maxdepth: 2
   :caption: CLI Reference:

`

	f, err := os.Create(filepath.Join(outputDir, "index.rst"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(tocHeader); err != nil {
		return err
	}

	commands, err := os.ReadDir(outputDir)
	if err != nil {
		return fmt.Errorf("error reading output directory: %v", err)
	}

	for _, c := range commands {
		if filepath.Ext(c.Name()) == ".rst" && c.Name() != "index.rst" {
			line := fmt.Sprintf("   %s\n", strings.TrimSuffix(c.Name(), ".rst"))
			if _, err := f.WriteString(line); err != nil {
				return err
			}
		}
	}

	return nil
}
