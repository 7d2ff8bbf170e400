package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader hands out queued messages, then blocks until the fetch context ends.
type fakeReader struct {
	mu         sync.Mutex
	queue      []kafkago.Message
	committed  []int64
	commitErrs []error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitErrs = append(r.commitErrs, ctx.Err())
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return ctx.Err()
}

func (r *fakeReader) Close() error { return nil }

func newFakeConsumer(reader *fakeReader) *Consumer {
	return &Consumer{reader: reader, topic: "optimization.events", logger: zap.NewNop()}
}

func TestConsume_HandlesAndCommitsInOrder(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{{Offset: 1}, {Offset: 2}}}
	c := newFakeConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	var handled []int64
	err := c.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
		handled = append(handled, msg.Offset)
		if msg.Offset == 2 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{1, 2}, handled)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsume_ShutdownMidMessageFinishesAndCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{{Offset: 7}}}
	c := newFakeConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	var handlerErr error
	err := c.Consume(ctx, func(hctx context.Context, _ kafkago.Message) error {
		cancel()
		handlerErr = hctx.Err()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, handlerErr, "handler context must survive shutdown")
	require.Equal(t, []int64{7}, reader.committed)
	assert.NoError(t, reader.commitErrs[0])
}

func TestConsume_HandlerErrorStillCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafkago.Message{{Offset: 3}}}
	c := newFakeConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Consume(ctx, func(context.Context, kafkago.Message) error {
		cancel()
		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{3}, reader.committed)
}
