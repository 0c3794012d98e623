package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in   string
		want Status
		ok   bool
	}{
		{"pending", StatusPending, true},
		{"Accepted", StatusAccepted, true},
		{"  process ", StatusProcess, true},
		{"in process", StatusProcess, true},
		{"packed", StatusPacked, true},
		{"in transit", StatusTransit, true},
		{"OUT-FOR-DELIVERY", StatusOutForDelivery, true},
		{"delivered", StatusDelivered, true},
		{"cancelled", StatusCancelled, true},
		{"shipped", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestStage(t *testing.T) {
	require.Equal(t, 0, StatusPending.Stage())
	require.Equal(t, 2, StatusProcess.Stage())
	require.Equal(t, 2, StatusPacked.Stage(), "packed renders at the process stage")
	require.Equal(t, 5, StatusDelivered.Stage())
	require.Equal(t, -1, StatusCancelled.Stage())
}

func TestIsForwardProgressFrom(t *testing.T) {
	require.True(t, StatusAccepted.IsForwardProgressFrom(StatusPending))
	require.True(t, StatusDelivered.IsForwardProgressFrom(StatusOutForDelivery))
	require.False(t, StatusPending.IsForwardProgressFrom(StatusAccepted))
	require.False(t, StatusPacked.IsForwardProgressFrom(StatusProcess), "same stage is not progress")
	require.False(t, StatusAccepted.IsForwardProgressFrom(StatusCancelled))
}

func TestInvoiceNumber(t *testing.T) {
	o := &Order{OrderID: "a1b2c3d4e5f6-7890"}
	require.Equal(t, "A1B2C3D4E5F6", o.InvoiceNumber())

	short := &Order{OrderID: "ord-1"}
	require.Equal(t, "ORD-1", short.InvoiceNumber())
}
