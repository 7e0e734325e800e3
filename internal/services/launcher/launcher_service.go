package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
)

const maxLineSize = 1024 * 1024

// Visibility decides which branch an uploaded build is set on.
type Visibility string

const (
	VisibilityNone      Visibility = "none"
	VisibilityDraft     Visibility = "draft"
	VisibilityPublished Visibility = "published"
)

// PublishRequest describes one build upload.
type PublishRequest struct {
	LauncherKey string
	GameFolder  string
	LoaderPath  string
	Description string
	Visibility  Visibility
}

// Commands returns the init and update invocations of the build loader.
func Commands(req PublishRequest) (initCmd, updateCmd []string) {
	initCmd = []string{req.LoaderPath, "--init", "--api-key", req.LauncherKey, "--game-path", req.GameFolder}

	updateCmd = []string{req.LoaderPath, "--update", "--game-path", req.GameFolder}
	if req.Description != "" {
		updateCmd = append(updateCmd, "--descr", req.Description)
	}
	switch req.Visibility {
	case VisibilityDraft:
		updateCmd = append(updateCmd, "--set-build-on-test")
	case VisibilityPublished:
		updateCmd = append(updateCmd, "--set-build-on-master")
	}
	return initCmd, updateCmd
}

// Publish runs the loader's init step and, if it succeeds, the update step.
// Loader output is streamed to the log line by line.
func Publish(ctx context.Context, req PublishRequest) error {
	if req.LoaderPath == "" {
		return errs.Validation("build loader path is required")
	}
	if req.GameFolder == "" {
		return errs.Validation("game folder is required")
	}
	switch req.Visibility {
	case "", VisibilityNone, VisibilityDraft, VisibilityPublished:
	default:
		return errs.Validation("unknown visibility %q", req.Visibility)
	}

	initCmd, updateCmd := Commands(req)

	logrus.Info("Step 1: Initializing build upload...")
	if err := run(ctx, initCmd); err != nil {
		return fmt.Errorf("init build upload: %w", err)
	}

	logrus.Info("Step 2: Starting build upload...")
	if err := run(ctx, updateCmd); err != nil {
		return fmt.Errorf("update build: %w", err)
	}

	logrus.Info("Build uploaded successfully!")
	return nil
}

func run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	streamLines(stdout, logrus.WithField("loader", args[0]))

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s finished with error %d", args[1], exitErr.ExitCode())
		}
		return err
	}
	return nil
}

// streamLines logs r line by line and always reads it to EOF, so the child
// never blocks on a full pipe.
func streamLines(r io.Reader, log *logrus.Entry) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			log.Info(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("Stopped logging loader output")
		if _, err := io.Copy(io.Discard, r); err != nil {
			log.WithError(err).Debug("Draining loader output failed")
		}
	}
}
