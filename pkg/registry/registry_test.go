package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkpan11/graphql-ws-transport/pkg/registry"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads []string
	errs     []error
}

func (s *recordingSubscriber) Update(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, string(payload))
}

func (s *recordingSubscriber) Error(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *recordingSubscriber) Payloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.payloads...)
}

func (s *recordingSubscriber) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func TestRegistry_Dispatch(t *testing.T) {
	t.Parallel()

	t.Run("delivers to the matching subscriber", func(t *testing.T) {
		t.Parallel()

		r := registry.New()
		sub := &recordingSubscriber{}
		r.Register("1", sub, nil)

		r.Dispatch("1", []byte(`{"value":1}`))

		assert.Equal(t, []string{`{"value":1}`}, sub.Payloads())
	})

	t.Run("ignores unknown ids", func(t *testing.T) {
		t.Parallel()

		r := registry.New()
		r.Dispatch("missing", []byte(`{}`))
		r.DispatchError("missing", errors.New("boom"))
	})
}

func TestRegistry_CompleteIfOneShot(t *testing.T) {
	t.Parallel()

	t.Run("removes one-shot operations", func(t *testing.T) {
		t.Parallel()

		r := registry.New()
		r.Register("42", &recordingSubscriber{}, nil)

		r.CompleteIfOneShot("42")

		assert.False(t, r.Has("42"))
		assert.Equal(t, 0, r.Size())
	})

	t.Run("keeps subscriptions, the client decides when those end", func(t *testing.T) {
		t.Parallel()

		r := registry.New()
		r.Register("1", &recordingSubscriber{}, []byte(`{"type":"subscribe","id":"1"}`))

		r.CompleteIfOneShot("1")

		assert.True(t, r.Has("1"))
		assert.Equal(t, 1, r.SubscriptionCount())
	})
}

func TestRegistry_Remove(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.Register("1", &recordingSubscriber{}, []byte(`subscribe`))

	r.Remove("1")

	assert.False(t, r.Has("1"))
	assert.Equal(t, 0, r.SubscriptionCount())
}

func TestRegistry_BroadcastError(t *testing.T) {
	t.Parallel()

	r := registry.New()
	sub1 := &recordingSubscriber{}
	sub2 := &recordingSubscriber{}
	r.Register("1", sub1, []byte(`subscribe 1`))
	r.Register("2", sub2, nil)

	broadcastErr := errors.New("connection lost")
	r.BroadcastError(broadcastErr)

	require.Equal(t, []error{broadcastErr}, sub1.Errors())
	require.Equal(t, []error{broadcastErr}, sub2.Errors())

	// subscribers stay registered so they can recover on reconnect
	assert.Equal(t, 2, r.Size())
}

func TestRegistry_ReplayMessages(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.Register("2", &recordingSubscriber{}, []byte(`second`))
	r.Register("10", &recordingSubscriber{}, []byte(`tenth`))
	r.Register("1", &recordingSubscriber{}, []byte(`first`))
	r.Register("3", &recordingSubscriber{}, nil) // one-shot, not replayed

	entries := r.ReplayMessages()
	require.Len(t, entries, 3)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, "10", entries[1].ID)
	assert.Equal(t, "2", entries[2].ID)
}

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	r := registry.New()
	sub := &recordingSubscriber{}
	r.Register("1", sub, []byte(`subscribe`))

	r.Clear()

	assert.Equal(t, 0, r.Size())
	assert.Equal(t, 0, r.SubscriptionCount())
	// sinks are not invoked on teardown
	assert.Empty(t, sub.Errors())
}

func TestSubscriberFunc(t *testing.T) {
	t.Parallel()

	var gotPayload []byte
	var gotErr error
	sub := registry.SubscriberFunc(func(payload []byte, err error) {
		if err != nil {
			gotErr = err
			return
		}
		gotPayload = payload
	})

	sub.Update([]byte(`{}`))
	assert.Equal(t, []byte(`{}`), gotPayload)

	boom := errors.New("boom")
	sub.Error(boom)
	assert.Equal(t, boom, gotErr)
}
