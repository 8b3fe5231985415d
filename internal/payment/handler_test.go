package payment

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/orderflow/internal/event"
)

type recordedEffect struct {
	kind    string
	orderID int64
	product string
	price   float64
}

type recorder struct {
	effects []recordedEffect
}

func (r *recorder) OrderProcessing(_ context.Context, o event.Order) {
	r.effects = append(r.effects, recordedEffect{kind: "processing", orderID: o.ID, product: o.Product, price: o.Price})
}

func (r *recorder) OrderUpdated(_ context.Context, o event.Order) {
	r.effects = append(r.effects, recordedEffect{kind: "updated", orderID: o.ID})
}

func (r *recorder) OrderRefunded(_ context.Context, orderID int64) {
	r.effects = append(r.effects, recordedEffect{kind: "refunded", orderID: orderID})
}

func TestHandleCreateEmitsProcessing(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(rec, nil)

	env := event.NewCreate(event.Order{ID: 1, UserName: "Alice", Product: "Pizza", Price: 42})
	require.NoError(t, h.Handle(context.Background(), env))

	require.Len(t, rec.effects, 1)
	assert.Equal(t, recordedEffect{kind: "processing", orderID: 1, product: "Pizza", price: 42}, rec.effects[0])
}

func TestHandleUpdateEmitsUpdated(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(rec, nil)

	require.NoError(t, h.Handle(context.Background(), event.NewUpdate(event.Order{ID: 5})))

	require.Len(t, rec.effects, 1)
	assert.Equal(t, "updated", rec.effects[0].kind)
	assert.EqualValues(t, 5, rec.effects[0].orderID)
}

func TestHandleDeleteEmitsRefund(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(rec, nil)

	require.NoError(t, h.Handle(context.Background(), event.NewDelete(7)))

	require.Len(t, rec.effects, 1)
	assert.Equal(t, recordedEffect{kind: "refunded", orderID: 7}, rec.effects[0])
}

func TestHandleMissingActionTreatedAsCreate(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(rec, nil)

	env, err := event.Decode([]byte(`{"order":{"id":2,"user_name":"Bob","product":"Sushi","price":18}}`))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), env))

	require.Len(t, rec.effects, 1)
	assert.Equal(t, "processing", rec.effects[0].kind)
	assert.EqualValues(t, 2, rec.effects[0].orderID)
}

func TestHandleCreateWithoutOrderPayload(t *testing.T) {
	rec := &recorder{}
	h := NewHandler(rec, nil)

	env, err := event.Decode([]byte(`{"action":"create"}`))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), env))

	require.Len(t, rec.effects, 1)
	assert.Zero(t, rec.effects[0].orderID)
}

func TestNewHandlerDefaultsToLogNotifier(t *testing.T) {
	h := NewHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, h.Handle(context.Background(), event.NewDelete(1)))
}
