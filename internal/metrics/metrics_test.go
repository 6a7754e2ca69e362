package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSubscriptionRequest(t *testing.T) {
	before := testutil.ToFloat64(SubscriptionRequestsTotal.WithLabelValues("reg", "418"))
	RecordSubscriptionRequest("reg", 418)
	assert.Equal(t, before+1, testutil.ToFloat64(SubscriptionRequestsTotal.WithLabelValues("reg", "418")))
}

func TestRecordMailDispatch(t *testing.T) {
	before := testutil.ToFloat64(MailDispatchTotal.WithLabelValues("verify", "sent"))
	RecordMailDispatch("verify", "sent", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(MailDispatchTotal.WithLabelValues("verify", "sent")))
}

func TestRecordMirrorRows(t *testing.T) {
	before := testutil.ToFloat64(MirrorRowsTotal.WithLabelValues("device"))
	RecordMirrorRows("device", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(MirrorRowsTotal.WithLabelValues("device")))
}
