package service

import (
	"net/url"
	"strings"
	"testing"

	"mytestbuddies_backend/internal/config"
	"mytestbuddies_backend/internal/model"

	"github.com/stretchr/testify/require"
)

func TestUPIURICarriesPayeeAndAmount(t *testing.T) {
	svc := &PaymentService{Cfg: &config.Config{Payment: config.PaymentConfig{
		Amount:    49,
		UPIID:     "mytestbuddies@upi",
		PayeeName: "MyTestBuddies",
	}}}

	payment := &model.Payment{Amount: 49}
	payment.ID = "pay-1"

	uri := svc.UPIURI(payment)
	require.True(t, strings.HasPrefix(uri, "upi://pay?"), uri)

	parsed, err := url.Parse(uri)
	require.NoError(t, err)
	q := parsed.Query()
	require.Equal(t, "mytestbuddies@upi", q.Get("pa"))
	require.Equal(t, "MyTestBuddies", q.Get("pn"))
	require.Equal(t, "49.00", q.Get("am"))
	require.Equal(t, "INR", q.Get("cu"))
	require.Contains(t, q.Get("tn"), "pay-1")
}
