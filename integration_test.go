package strata_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-base/strata-go/internal/testharness"
	"github.com/strata-base/strata-go/pkg/realtime"
	"github.com/strata-base/strata-go/pkg/records"
	"github.com/strata-base/strata-go/pkg/transport"
)

func newStack(t *testing.T) (*testharness.Server, *transport.Client, *realtime.Client) {
	t.Helper()

	srv := testharness.NewServer()
	t.Cleanup(srv.Close)

	tc, err := transport.NewClient(transport.Config{BaseURL: srv.URL()})
	require.NoError(t, err)

	rc, err := realtime.NewClient(realtime.Config{
		Transport: tc,
		Reconnect: realtime.ReconnectConfig{
			Interval:    10 * time.Millisecond,
			MaxAttempts: 3,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return srv, tc, rc
}

// TestE2E_SubscribeAndReceive runs the full path: open the SSE stream,
// complete the handshake, register the interest set over HTTP, and receive
// a published frame.
func TestE2E_SubscribeAndReceive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv, _, rc := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got := make(chan realtime.Message, 1)
	unsub, err := rc.Subscribe(ctx, "posts/*", func(m realtime.Message) { got <- m })
	require.NoError(t, err)
	require.Equal(t, realtime.StateOpen, rc.State())
	require.NotEmpty(t, rc.ClientID())

	// The registration push carries the subscribed topic
	require.Eventually(t, func() bool {
		reg, ok := srv.LastRegistration()
		return ok && len(reg.Subscriptions) == 1 && reg.Subscriptions[0] == "posts/*"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Publish("posts/*", "create", map[string]any{"id": "p1", "title": "hello"}))

	select {
	case m := <-got:
		require.Equal(t, "create", m.Action)
		require.Equal(t, "posts/*", m.Topic)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published frame")
	}

	require.NoError(t, unsub())
	require.Equal(t, realtime.StateDisconnected, rc.State())
}

// TestE2E_ReconnectReregisters drops the server side of the stream and
// verifies the client comes back with a fresh identity and re-registers.
func TestE2E_ReconnectReregisters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	srv, _, rc := newStack(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := rc.Subscribe(ctx, "users/u1", func(realtime.Message) {})
	require.NoError(t, err)
	firstID := rc.ClientID()

	srv.DropConnections()

	require.Eventually(t, func() bool {
		id := rc.ClientID()
		return id != "" && id != firstID
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		reg, ok := srv.LastRegistration()
		return ok && reg.ClientID == rc.ClientID()
	}, 5*time.Second, 10*time.Millisecond)
}

// TestE2E_RecordCRUD exercises the record service against the harness.
func TestE2E_RecordCRUD(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	_, tc, _ := newStack(t)
	ctx := context.Background()

	svc, err := records.NewService(tc, "posts")
	require.NoError(t, err)

	rec, err := svc.Create(ctx, map[string]any{"title": "first"})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID())

	rec, err = svc.Update(ctx, rec.ID(), map[string]any{"title": "second"})
	require.NoError(t, err)
	require.Equal(t, "second", rec.GetString("title"))

	list, err := svc.List(ctx, records.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, list.TotalItems)

	require.NoError(t, svc.Delete(ctx, rec.ID()))

	_, err = svc.Get(ctx, rec.ID(), records.ListOptions{})
	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 404, apiErr.Status)
}
