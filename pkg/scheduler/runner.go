// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/samber/lo"
	"portage.dev/x/pmerge/pkg/config"
)

// DryRunner succeeds without doing anything, for transactions that are
// only recorded
type DryRunner struct{}

func (DryRunner) Run(ctx context.Context, job *Job) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	slog.Debug("no merge command", "operation", job.Entry.Operation, "package", job.Entry.String(), "root", job.Entry.Root)
	return 0, nil
}

// CommandRunner runs an external command for every job. The entry is
// passed through the environment.
type CommandRunner struct {
	Command        []string
	Stdout, Stderr io.Writer
}

func (r *CommandRunner) Run(ctx context.Context, job *Job) (int, error) {
	if len(r.Command) == 0 {
		return 0, fmt.Errorf("no merge command configured")
	}
	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	e := job.Entry
	extraEnv := map[string]string{
		config.CpvInjectedEnvVar:        e.Cpv,
		config.RootInjectedEnvVar:       e.Root,
		config.OperationInjectedEnvVar:  e.Operation,
		config.RepositoryInjectedEnvVar: e.Repository,
		config.UseInjectedEnvVar:        strings.Join(e.Use, " "),
	}
	env := lo.MapToSlice(extraEnv, func(key string, value string) string {
		return fmt.Sprintf("%s=%s", key, value)
	})
	cmd.Env = append(os.Environ(), env...)

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return exitError.ExitCode(), nil
		}
		return 0, fmt.Errorf("failed to spawn merge command for %s. %w", job, err)
	}
	return 0, nil
}
