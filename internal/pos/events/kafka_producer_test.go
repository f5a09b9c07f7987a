package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testEvent() Event {
	return Event{
		Type:      SaleCreated,
		CompanyID: uuid.New(),
		Schema:    "loja_a",
		Sale: &models.Sale{
			ID:     uuid.New(),
			Client: "Maria",
			Seller: "Joao",
			Total:  decimal.RequireFromString("35.50"),
		},
	}
}

func TestNewProducer(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)
	producer := newProducer(mockWriter, zaptest.NewLogger(t))
	defer producer.Close()

	assert.NotNil(t, producer.events)
	assert.NotNil(t, producer.closeChan)
	assert.Equal(t, "kafka_producer", producer.logger.Check(zap.InfoLevel, "").LoggerName)
}

func TestProducer_Produce(t *testing.T) {
	t.Run("event is written keyed by sale id", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		event := testEvent()
		written := make(chan kafka.Message, 1)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				written <- args.Get(1).([]kafka.Message)[0]
			}).
			Return(nil)
		mockWriter.On("Close").Return(nil)

		producer := newProducer(mockWriter, zaptest.NewLogger(t))
		producer.Produce(event)

		select {
		case msg := <-written:
			assert.Equal(t, event.Sale.ID.String(), string(msg.Key))
			var decoded Event
			require.NoError(t, json.Unmarshal(msg.Value, &decoded))
			assert.Equal(t, SaleCreated, decoded.Type)
			assert.Equal(t, "loja_a", decoded.Schema)
			assert.Equal(t, event.Sale.ID, decoded.Sale.ID)
			assert.True(t, decoded.Sale.Total.Equal(event.Sale.Total))
		case <-time.After(2 * time.Second):
			t.Fatal("event was not written")
		}

		producer.Close()
		mockWriter.AssertExpectations(t)
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := &Producer{
			events: make(chan Event, 1),
			logger: zap.New(core),
		}
		event := testEvent()

		producer.Produce(event)
		producer.Produce(event)

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	event := testEvent()

	t.Run("serialization error", func(t *testing.T) {
		original := jsonMarshal
		defer func() { jsonMarshal = original }()
		jsonMarshal = func(interface{}) ([]byte, error) {
			return nil, errors.New("marshal error")
		}

		core, recorded := observer.New(zap.ErrorLevel)
		mockWriter := new(MockKafkaWriter)
		producer := &Producer{writer: mockWriter, logger: zap.New(core)}

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		mockWriter.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		mockWriter := new(MockKafkaWriter)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))
		producer := &Producer{writer: mockWriter, logger: zap.New(core)}

		producer.sendEvent(context.Background(), event)

		logs := recorded.FilterMessage("Failed to produce event")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, event.Sale.ID.String(), logs.All()[0].ContextMap()["sale_id"])
	})
}

func TestProducer_Close(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(errors.New("close failed"))

	producer := newProducer(mockWriter, zap.New(core))
	producer.Close()

	mockWriter.AssertExpectations(t)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to close Kafka writer").Len())
}
