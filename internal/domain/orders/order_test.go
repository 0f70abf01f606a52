package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newDeliveryOrder(t *testing.T) *Order {
	t.Helper()
	o := NewOrder("ORD1001", "JAMES", OrderTypeDelivery, testNow)
	require.NoError(t, o.AddItem("margherita", "Margherita", 1, NewMoneyFromFloat2(10.99), testNow))
	return o
}

func TestDeliveryOrderFullLifecycle(t *testing.T) {
	o := newDeliveryOrder(t)
	assert.Equal(t, StatusCreated, o.Status)

	require.True(t, o.Submit(testNow))
	require.True(t, o.MarkPreparing(testNow))
	require.True(t, o.MarkPrepComplete(testNow))
	require.True(t, o.MarkBakeComplete(testNow))
	require.True(t, o.MarkQualityChecked(testNow))
	assert.Equal(t, StatusQualityChecked, o.Status)

	require.True(t, o.AssignDriver("james", testNow))
	require.NotNil(t, o.AssignedDriver)
	assert.Equal(t, "james", *o.AssignedDriver)

	require.True(t, o.MarkDriverCollected(testNow))
	assert.Equal(t, StatusOutForDelivery, o.Status)

	require.True(t, o.MarkDelivered(testNow))
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Nil(t, o.AssignedDriver)
	require.NotNil(t, o.CompletedOn)
	assert.True(t, o.Completed())
}

func TestPickupOrderFullLifecycle(t *testing.T) {
	o := NewOrder("ORD1002", "ANNA", OrderTypePickup, testNow)
	require.NoError(t, o.AddItem("pepperoni", "Pepperoni", 2, NewMoneyFromFloat2(12.99), testNow))

	require.True(t, o.Submit(testNow))
	require.True(t, o.MarkPreparing(testNow))
	require.True(t, o.MarkPrepComplete(testNow))
	require.True(t, o.MarkBakeComplete(testNow))

	// pickup routes the quality check straight to awaiting collection
	require.True(t, o.MarkQualityChecked(testNow))
	assert.Equal(t, StatusAwaitingCollection, o.Status)
	assert.True(t, o.AwaitingCollection())

	require.True(t, o.Collect(testNow))
	assert.Equal(t, StatusCollected, o.Status)
	require.NotNil(t, o.CompletedOn)
	assert.True(t, o.Completed())
}

func TestDuplicateDeliveredEventIsNoOp(t *testing.T) {
	o := newDeliveryOrder(t)
	o.Submit(testNow)
	o.MarkPreparing(testNow)
	o.MarkPrepComplete(testNow)
	o.MarkBakeComplete(testNow)
	o.MarkQualityChecked(testNow)
	o.AssignDriver("james", testNow)
	o.MarkDriverCollected(testNow)

	require.True(t, o.MarkDelivered(testNow))
	completedOn := *o.CompletedOn
	historyLen := len(o.History)

	later := testNow.Add(5 * time.Minute)
	assert.False(t, o.MarkDelivered(later))
	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, completedOn, *o.CompletedOn)
	assert.Len(t, o.History, historyLen)
}

func TestOutOfOrderStageEventIsNoOp(t *testing.T) {
	o := newDeliveryOrder(t)
	o.Submit(testNow)

	// bake-complete arriving before preparing must not move the order
	assert.False(t, o.MarkBakeComplete(testNow))
	assert.Equal(t, StatusSubmitted, o.Status)

	// the late preparing event still lands
	assert.True(t, o.MarkPreparing(testNow))
	assert.Equal(t, StatusPreparing, o.Status)
}

func TestAddItemLockedAfterSubmit(t *testing.T) {
	o := newDeliveryOrder(t)
	require.True(t, o.Submit(testNow))

	err := o.AddItem("veggie", "Veggie Supreme", 1, NewMoneyFromFloat2(11.99), testNow)
	assert.ErrorIs(t, err, ErrItemsLocked)
	assert.Len(t, o.Items, 1)
}

func TestTotalAmount(t *testing.T) {
	o := NewOrder("ORD1003", "ANNA", OrderTypeDelivery, testNow)
	require.NoError(t, o.AddItem("margherita", "Margherita", 2, NewMoneyFromFloat2(10.99), testNow))
	require.NoError(t, o.AddItem("pepperoni", "Pepperoni", 1, NewMoneyFromFloat2(12.99), testNow))

	assert.InDelta(t, 34.97, o.TotalAmount().ToFloat2(), 0.001)
}

func TestHistoryRecordsLifecycle(t *testing.T) {
	o := newDeliveryOrder(t)
	o.Submit(testNow)
	o.MarkPreparing(testNow)
	o.MarkPrepComplete(testNow)
	o.MarkBakeComplete(testNow)
	o.MarkQualityChecked(testNow)
	o.AssignDriver("james", testNow)
	o.MarkDriverCollected(testNow)
	o.MarkDelivered(testNow)

	var descriptions []string
	for _, h := range o.History {
		descriptions = append(descriptions, h.Description)
	}
	assert.Equal(t, []string{
		"Order created",
		"Order submitted",
		"Order prep started",
		"Prep complete",
		"Bake complete",
		"Order quality checked",
		"Order assigned to driver james",
		"Order collected by driver",
		"Order delivered",
		"Order completed.",
	}, descriptions)
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	for _, s := range []OrderStatus{StatusCompleted, StatusCollected} {
		assert.True(t, IsTerminal(s), string(s))
		for _, to := range []OrderStatus{StatusSubmitted, StatusPreparing, StatusCompleted, StatusCollected, StatusDelivered} {
			assert.False(t, CanTransition(s, to), "%s -> %s", s, to)
		}
	}
}

func TestDeliveredIsPassedThrough(t *testing.T) {
	o := newDeliveryOrder(t)
	o.Submit(testNow)
	o.MarkPreparing(testNow)
	o.MarkPrepComplete(testNow)
	o.MarkBakeComplete(testNow)
	o.MarkQualityChecked(testNow)
	o.AssignDriver("james", testNow)
	o.MarkDriverCollected(testNow)

	require.True(t, CanTransition(StatusOutForDelivery, StatusDelivered))
	require.True(t, CanTransition(StatusDelivered, StatusCompleted))
	assert.False(t, IsTerminal(StatusDelivered))

	require.True(t, o.MarkDelivered(testNow))
	assert.Equal(t, StatusCompleted, o.Status)
}

func TestNewOrderCarriesNoDriver(t *testing.T) {
	o := NewOrder("ORD1004", "JAMES", OrderTypeDelivery, testNow)
	assert.Nil(t, o.AssignedDriver)
	assert.Nil(t, o.CompletedOn)
}
