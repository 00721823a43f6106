package blockchain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMempool(t *testing.T) {
	m := NewMempool()
	m.Add(NewTransaction("A", "B", 10, testTime))
	m.Add(NewTransaction("B", "A", 5, testTime))
	m.Add(NewTransaction("A", "C", 7, testTime))

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, int64(17), m.PendingFrom("A"))
	assert.Equal(t, int64(5), m.PendingFrom("B"))
	assert.Equal(t, int64(0), m.PendingFrom("C"))

	snap := m.Snapshot()
	snap[0].Amount = 1000
	assert.Equal(t, int64(17), m.PendingFrom("A"))

	m.Drop(2)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, Address("C"), m.Snapshot()[0].Recipient)

	m.Drop(5)
	assert.Equal(t, 0, m.Len())
}

func TestMempoolIgnoresRewards(t *testing.T) {
	m := NewMempool()
	m.Add(NewRewardTransaction("A", 100, testTime))

	assert.Equal(t, int64(0), m.PendingFrom(""))
}

func TestEventFeed(t *testing.T) {
	feed := NewEventFeed[BlockMinedEvent]()
	full := make(chan BlockMinedEvent)
	buffered := make(chan BlockMinedEvent, 1)

	require.NoError(t, feed.Subscribe("full", full))
	require.NoError(t, feed.Subscribe("buffered", buffered))
	assert.Error(t, feed.Subscribe("buffered", buffered))

	delivered := feed.Send(BlockMinedEvent{Height: 1})
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, (<-buffered).Height)

	feed.UnSubscribe("buffered")
	assert.Equal(t, 0, feed.Send(BlockMinedEvent{Height: 2}))
}
