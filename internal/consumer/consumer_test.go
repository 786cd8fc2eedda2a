package consumer

import (
	"encoding/base64"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubHandler struct {
	received []string
	err      error
}

var _ EventHandler = (*stubHandler)(nil)

func (h *stubHandler) HandleEvent(decodedMessage string) error {
	h.received = append(h.received, decodedMessage)
	return h.err
}

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(_ uint64, _ bool) error { a.acked = true; return nil }

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, _ bool) error { return nil }

func delivery(ack *fakeAcknowledger, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)}
}

func TestProcessMessage_AcksOnSuccess(t *testing.T) {
	handler := &stubHandler{}
	ack := &fakeAcknowledger{}
	body := base64.StdEncoding.EncodeToString([]byte(`{"hello":"world"}`))

	ProcessMessage(zap.NewNop(), "test.queue", delivery(ack, body), handler)

	assert.Equal(t, []string{`{"hello":"world"}`}, handler.received)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestProcessMessage_NacksOnHandlerError(t *testing.T) {
	handler := &stubHandler{err: assert.AnError}
	ack := &fakeAcknowledger{}
	body := base64.StdEncoding.EncodeToString([]byte(`{}`))

	ProcessMessage(zap.NewNop(), "test.queue", delivery(ack, body), handler)

	assert.Len(t, handler.received, 1)
	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "bad payloads must not requeue")
}

func TestProcessMessage_RejectsUndecodableBody(t *testing.T) {
	handler := &stubHandler{}
	ack := &fakeAcknowledger{}

	ProcessMessage(zap.NewNop(), "test.queue", delivery(ack, "not base64!"), handler)

	assert.Empty(t, handler.received, "handler never sees an undecodable message")
	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}
