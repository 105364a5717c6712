package outbox

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestNewKafkaProducerSharesOneWriter(t *testing.T) {
	producer := NewKafkaProducer([]string{"kafka-1:9092", "kafka-2:9092"})

	require.Equal(t, "kafka-1:9092,kafka-2:9092", producer.writer.Addr.String())
	require.Equal(t, kafka.RequireAll, producer.writer.RequiredAcks)
	require.False(t, producer.writer.Async)

	// The writer carries no fixed topic; each message is stamped with the
	// topic recorded on its outbox row.
	require.Empty(t, producer.writer.Topic)

	require.NoError(t, producer.Close())
}
