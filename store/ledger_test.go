package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeenLedgerCap(t *testing.T) {
	assert := assert.New(t)
	ledger := NewSeenLedger(NewMemoryBackend())

	// Record more IDs than the cap in batches.
	batch := make([]string, 0, 100)
	for i := 0; i < SeenLedgerCap+100; i++ {
		batch = append(batch, fmt.Sprintf("job-%d", i))
		if len(batch) == 100 {
			assert.NoError(ledger.Record(batch))
			batch = batch[:0]
		}
	}

	// Exactly the most recent IDs survive, oldest evicted first.
	ids := ledger.Load()
	assert.Len(ids, SeenLedgerCap)
	assert.Equal("job-100", ids[0])
	assert.Equal(fmt.Sprintf("job-%d", SeenLedgerCap+99), ids[len(ids)-1])
}

func TestSeenLedgerSkipsDuplicates(t *testing.T) {
	assert := assert.New(t)
	ledger := NewSeenLedger(NewMemoryBackend())

	assert.NoError(ledger.Record([]string{"job-1", "job-2"}))
	assert.NoError(ledger.Record([]string{"job-2", "job-3", ""}))

	assert.Equal([]string{"job-1", "job-2", "job-3"}, ledger.Load())
}

func TestWatermarkMonotonicity(t *testing.T) {
	assert := assert.New(t)
	watermark := NewWatermark(NewMemoryBackend())

	// The watermark starts at the epoch.
	assert.True(watermark.Load().IsZero())

	// Advancing raises it.
	newer := time.UnixMilli(1700000000000)
	effective, err := watermark.Advance(newer)
	assert.NoError(err)
	assert.True(effective.Equal(newer))

	// Proposing an older timestamp never regresses it.
	older := newer.Add(-time.Hour)
	effective, err = watermark.Advance(older)
	assert.NoError(err)
	assert.True(effective.Equal(newer))
	assert.True(watermark.Load().Equal(newer))
}

func TestWatermarkCorruptSnapshot(t *testing.T) {
	assert := assert.New(t)
	backend := NewMemoryBackend()
	assert.NoError(backend.Save(KeyWatermark, []byte("garbage")))

	// A corrupt watermark reads as the epoch, making everything look new again.
	watermark := NewWatermark(backend)
	assert.True(watermark.Load().IsZero())
}
