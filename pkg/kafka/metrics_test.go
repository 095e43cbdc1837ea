package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// topicMetric returns the child of c labelled with topic.
func topicMetric(t *testing.T, c prometheus.Collector, topic string) *dto.Metric {
	t.Helper()
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var out dto.Metric
		require.NoError(t, m.Write(&out))
		for _, lp := range out.GetLabel() {
			if lp.GetName() == "topic" && lp.GetValue() == topic {
				return &out
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, c *prometheus.CounterVec, topic string) float64 {
	t.Helper()
	return topicMetric(t, c, topic).GetCounter().GetValue()
}

func TestPublish_UnreachableBrokerCountsError(t *testing.T) {
	topic := "metrics-test-unreachable"

	cfg := DefaultProducerConfig([]string{"127.0.0.1:1"})
	cfg.BatchTimeout = time.Millisecond
	p := NewProducer(cfg, discardLogger())
	defer p.Close()

	event, err := NewEvent("storefront.test", "sess-1", "storefront_session", "test", map[string]string{"k": "v"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.Error(t, p.Publish(ctx, topic, event))

	assert.Equal(t, float64(1), counterValue(t, publishErrors, topic))
	assert.Equal(t, uint64(1), topicMetric(t, publishDuration, topic).GetHistogram().GetSampleCount())
	assert.Nil(t, topicMetric(t, messagesPublished, topic))
}

func TestCompleted_CountsPerTopic(t *testing.T) {
	p := NewProducer(DefaultProducerConfig([]string{"localhost:19092"}), discardLogger())
	defer p.Close()

	p.completed([]kafka.Message{{Topic: "metrics-ok"}, {Topic: "metrics-ok"}}, nil)
	p.completed([]kafka.Message{{Topic: "metrics-failed"}}, errors.New("leader not available"))

	assert.Equal(t, float64(2), counterValue(t, messagesPublished, "metrics-ok"))
	assert.Equal(t, float64(1), counterValue(t, publishErrors, "metrics-failed"))
	assert.Nil(t, topicMetric(t, publishErrors, "metrics-ok"))
}
