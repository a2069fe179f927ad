package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	sent := testutil.ToFloat64(MessagesSent)
	bytes := testutil.ToFloat64(BytesSent)
	received := testutil.ToFloat64(DatagramsReceived)
	dropped := testutil.ToFloat64(DatagramsDropped.WithLabelValues("invalid_utf8"))

	var r Recorder
	r.MessageSent(5)
	r.MessageSent(7)
	r.DatagramReceived(3)
	r.DatagramDropped()

	if got := testutil.ToFloat64(MessagesSent) - sent; got != 2 {
		t.Errorf("messages sent delta %v", got)
	}
	if got := testutil.ToFloat64(BytesSent) - bytes; got != 12 {
		t.Errorf("bytes sent delta %v", got)
	}
	if got := testutil.ToFloat64(DatagramsReceived) - received; got != 1 {
		t.Errorf("datagrams received delta %v", got)
	}
	if got := testutil.ToFloat64(DatagramsDropped.WithLabelValues("invalid_utf8")) - dropped; got != 1 {
		t.Errorf("datagrams dropped delta %v", got)
	}
}
