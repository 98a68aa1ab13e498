package container

import (
	"bytes"
	"context"
	"fmt"
	"time"

	dockercontainertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	dockerclient "github.com/moby/moby/client"
	"go.uber.org/zap"
)

// ExecOptions contains configuration for a single in-container command.
type ExecOptions struct {
	// Environment variables
	Env []string
	// If blank, defaults to the container's default user.
	User string
	// Working directory inside the container.
	WorkingDir string
}

// ExecResult carries the demuxed output of an in-container command.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Exec runs cmd inside the running container and waits for it to finish.
// A non-zero exit code is returned as an error alongside the captured output.
func Exec(ctx context.Context, log *zap.Logger, cli *dockerclient.Client, containerID string, cmd []string, opts ExecOptions) (ExecResult, error) {
	res := ExecResult{ExitCode: -1}

	created, err := cli.ContainerExecCreate(ctx, containerID, dockercontainertypes.ExecOptions{
		Cmd:          cmd,
		Env:          opts.Env,
		User:         opts.User,
		WorkingDir:   opts.WorkingDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return res, fmt.Errorf("creating exec: %w", err)
	}

	attach, err := cli.ContainerExecAttach(ctx, created.ID, dockercontainertypes.ExecStartOptions{})
	if err != nil {
		return res, fmt.Errorf("attaching to exec: %w", err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return res, fmt.Errorf("reading exec output: %w", err)
	}
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()

	for {
		inspect, err := cli.ContainerExecInspect(ctx, created.ID)
		if err != nil {
			return res, fmt.Errorf("inspecting exec: %w", err)
		}
		if !inspect.Running {
			res.ExitCode = inspect.ExitCode
			break
		}
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	if res.ExitCode != 0 {
		log.Debug("command exited non-zero",
			zap.Strings("cmd", cmd),
			zap.Int("exit_code", res.ExitCode),
			zap.ByteString("stderr", res.Stderr),
		)
		return res, fmt.Errorf("command %v exited with code %d: %s", cmd, res.ExitCode, bytes.TrimSpace(res.Stderr))
	}
	return res, nil
}
