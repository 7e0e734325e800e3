package launcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xsolla-tools/internal/errs"
)

func TestCommands(t *testing.T) {
	req := PublishRequest{
		LauncherKey: "key-123",
		GameFolder:  "/games/hl2",
		LoaderPath:  "/opt/build_loader",
		Description: "patch 1.1",
		Visibility:  VisibilityDraft,
	}

	initCmd, updateCmd := Commands(req)
	assert.Equal(t, []string{"/opt/build_loader", "--init", "--api-key", "key-123", "--game-path", "/games/hl2"}, initCmd)
	assert.Equal(t, []string{"/opt/build_loader", "--update", "--game-path", "/games/hl2", "--descr", "patch 1.1", "--set-build-on-test"}, updateCmd)

	req.Description = ""
	req.Visibility = VisibilityPublished
	_, updateCmd = Commands(req)
	assert.Equal(t, []string{"/opt/build_loader", "--update", "--game-path", "/games/hl2", "--set-build-on-master"}, updateCmd)

	req.Visibility = VisibilityNone
	_, updateCmd = Commands(req)
	assert.Equal(t, []string{"/opt/build_loader", "--update", "--game-path", "/games/hl2"}, updateCmd)
}

func TestPublishValidation(t *testing.T) {
	err := Publish(context.Background(), PublishRequest{GameFolder: "/games"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	err = Publish(context.Background(), PublishRequest{LoaderPath: "/bin/true"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	err = Publish(context.Background(), PublishRequest{LoaderPath: "/bin/true", GameFolder: "/games", Visibility: "beta"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func writeLoader(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell loader stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "build_loader")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	t.Cleanup(func() { logrus.SetOutput(prev) })
	return &buf
}

func TestPublishStreamsOutput(t *testing.T) {
	loader := writeLoader(t, `echo "loader $1"
exit 0
`)
	logs := captureLogs(t)

	err := Publish(context.Background(), PublishRequest{
		LauncherKey: "k",
		GameFolder:  t.TempDir(),
		LoaderPath:  loader,
		Visibility:  VisibilityPublished,
	})
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "loader --init")
	assert.Contains(t, out, "loader --update")
	assert.Contains(t, out, "Build uploaded successfully!")
}

func TestPublishStopsOnInitFailure(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "updated")
	loader := writeLoader(t, `if [ "$1" = "--init" ]; then
  echo "bad key"
  exit 3
fi
touch `+marker+`
`)
	captureLogs(t)

	err := Publish(context.Background(), PublishRequest{
		LauncherKey: "k",
		GameFolder:  t.TempDir(),
		LoaderPath:  loader,
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "error 3"), err.Error())

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr), "update step must not run after a failed init")
}

func TestStreamLinesDrainsAfterLongLine(t *testing.T) {
	logs := captureLogs(t)
	r := strings.NewReader("first\n" + strings.Repeat("a", maxLineSize+1) + "\nlast\n")

	streamLines(r, logrus.WithField("loader", "test"))

	assert.Zero(t, r.Len())
	out := logs.String()
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "Stopped logging loader output")
}

func TestPublishSurvivesOversizedOutput(t *testing.T) {
	loader := writeLoader(t, `head -c 2000000 /dev/zero | tr '\000' 'a'
echo
echo "after the long line"
`)
	captureLogs(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := Publish(ctx, PublishRequest{
		LauncherKey: "k",
		GameFolder:  t.TempDir(),
		LoaderPath:  loader,
	})
	require.NoError(t, err)
}
