package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecordEntry(t *testing.T) {
	before := testutil.ToFloat64(entriesTotal)

	RecordEntry(decimal.RequireFromString("2.5"))

	assert.Equal(t, before+1, testutil.ToFloat64(entriesTotal))
	assert.Equal(t, 2.5, testutil.ToFloat64(pool))
}

func TestRecordWinnerPickedClearsPool(t *testing.T) {
	SetPool(decimal.NewFromInt(4))
	before := testutil.ToFloat64(winnersPickedTotal)

	RecordWinnerPicked(time.Now().Add(-time.Second))

	assert.Equal(t, before+1, testutil.ToFloat64(winnersPickedTotal))
	assert.Zero(t, testutil.ToFloat64(pool))
}

func TestRecordFulfillRejected(t *testing.T) {
	unknown := fulfillRejectedTotal.WithLabelValues(RejectUnknownRequest)
	beforeUnknown := testutil.ToFloat64(unknown)
	beforePayout := testutil.ToFloat64(payoutFailuresTotal)

	RecordFulfillRejected(RejectUnknownRequest)
	assert.Equal(t, beforeUnknown+1, testutil.ToFloat64(unknown))
	assert.Equal(t, beforePayout, testutil.ToFloat64(payoutFailuresTotal))

	RecordFulfillRejected(RejectTransfer)
	assert.Equal(t, beforePayout+1, testutil.ToFloat64(payoutFailuresTotal))
}
