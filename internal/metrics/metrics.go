package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Outbound
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcastchat_messages_sent_total",
			Help: "Total chat messages sent to the multicast group",
		},
	)

	BytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcastchat_bytes_sent_total",
			Help: "Total payload bytes sent to the multicast group",
		},
	)

	// Inbound
	DatagramsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcastchat_datagrams_received_total",
			Help: "Total inbound datagrams appended to the transcript",
		},
	)

	BytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mcastchat_bytes_received_total",
			Help: "Total inbound payload bytes appended to the transcript",
		},
	)

	DatagramsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcastchat_datagrams_dropped_total",
			Help: "Total inbound datagrams discarded",
		},
		[]string{"reason"},
	)
)

// Recorder feeds engine events into the package counters.
type Recorder struct{}

func (Recorder) MessageSent(bytes int) {
	MessagesSent.Inc()
	BytesSent.Add(float64(bytes))
}

func (Recorder) DatagramReceived(bytes int) {
	DatagramsReceived.Inc()
	BytesReceived.Add(float64(bytes))
}

func (Recorder) DatagramDropped() {
	DatagramsDropped.WithLabelValues("invalid_utf8").Inc()
}
