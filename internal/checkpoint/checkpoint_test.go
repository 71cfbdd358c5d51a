package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitPending(t *testing.T, r *Remote) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, _, ok := r.Pending()
		return ok
	}, time.Second, time.Millisecond)
}

func TestRemoteResume(t *testing.T) {
	r := NewRemote()
	assert.False(t, r.Resume(), "nothing pending yet")

	done := make(chan error, 1)
	go func() { done <- r.Await(context.Background(), "captcha") }()

	waitPending(t, r)
	reason, since, ok := r.Pending()
	assert.True(t, ok)
	assert.Equal(t, "captcha", reason)
	assert.False(t, since.IsZero())

	assert.True(t, r.Resume())
	require.NoError(t, <-done)

	_, _, ok = r.Pending()
	assert.False(t, ok)
}

func TestRemoteCancelled(t *testing.T) {
	r := NewRemote()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Await(ctx, "captcha") }()

	waitPending(t, r)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestConsoleReleasesOnEnter(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("\n"), &out)

	require.NoError(t, c.Await(context.Background(), "verification challenge"))
	assert.Contains(t, out.String(), "verification challenge")
	assert.Contains(t, out.String(), "press Enter")
}

func TestConsoleAbortsOnEOF(t *testing.T) {
	c := NewConsole(strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, c.Await(context.Background(), "x"), ErrAborted)
}

func TestAnyFirstReleaseWins(t *testing.T) {
	a, b := NewRemote(), NewRemote()
	gate := Any(a, b)

	done := make(chan error, 1)
	go func() { done <- gate.Await(context.Background(), "captcha") }()

	waitPending(t, b)
	b.Resume()
	require.NoError(t, <-done)

	require.Eventually(t, func() bool {
		_, _, ok := a.Pending()
		return !ok
	}, time.Second, time.Millisecond, "losing gate is released by cancellation")
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, message string) error {
	n.messages = append(n.messages, message)
	return n.err
}

func TestWithNotifier(t *testing.T) {
	n := &recordingNotifier{err: errors.New("telegram down")}
	r := NewRemote()
	gate := WithNotifier(r, n, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- gate.Await(context.Background(), "captcha on results") }()

	waitPending(t, r)
	r.Resume()
	require.NoError(t, <-done)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "captcha on results")
}
