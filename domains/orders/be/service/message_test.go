package service

import (
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFormatRupiah(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Rp 0", FormatRupiah(0))
	require.Equal(t, "Rp 25.000", FormatRupiah(25000))
	require.Equal(t, "Rp 1.250.000", FormatRupiah(1250000))
}

func TestNewOrderMessage(t *testing.T) {
	t.Parallel()

	o := Order{
		ID:            uuid.MustParse("7f1d2c9e-1b7a-4c11-8d0e-5a3b2f1e0c9d"),
		CustomerEmail: "c@example.com",
		Items:         []Item{{Name: "Kopi", UnitPrice: 25000, Quantity: 2}},
		TotalPrice:    50000,
	}
	msg := NewOrderMessage(o)
	require.Contains(t, msg, "*PESANAN BARU (ID: 7f1d2c9e-1b7a-4c11-8d0e-5a3b2f1e0c9d)*")
	require.Contains(t, msg, "Qty: 2\nHarga: Rp 50.000\n")
	require.Contains(t, msg, "*TOTAL PESANAN: Rp 50.000*")
	require.Contains(t, msg, "Email Pelanggan: c@example.com")
}

func TestWhatsAppLinkEscapesText(t *testing.T) {
	t.Parallel()

	link := WhatsAppLink("+62 812-3456-7890", "a & b\nc")
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/6281234567890", u.Path)
	require.Equal(t, "a & b\nc", u.Query().Get("text"))
}
