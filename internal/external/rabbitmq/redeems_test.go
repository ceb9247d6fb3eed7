package laundry

import (
	"testing"

	model "github.com/glkeru/laundry/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDecodeRedeem(t *testing.T) {
	m, err := DecodeRedeem([]byte(`{"requestId":"r1","userId":"u1","type":"discount","points":200}`))
	require.NoError(t, err)
	req := m.Request()
	require.Equal(t, model.RedemptionDiscount, req.Type)
	require.Equal(t, int64(200), req.Points)
	require.Equal(t, "r1", req.RequestID)
	require.Equal(t, "u1", m.UserID)

	_, err = DecodeRedeem([]byte(`{"points":200}`))
	require.ErrorIs(t, err, model.ErrValidation)

	_, err = DecodeRedeem([]byte(`{`))
	require.Error(t, err)
}
