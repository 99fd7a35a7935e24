package service

import (
	"net/url"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	tenantsservice "github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
)

var rupiah = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an integer amount as "Rp 25.000".
func FormatRupiah(amount int64) string {
	return rupiah.Sprintf("Rp %d", amount)
}

// NewOrderMessage is the summary a customer sends to the store after checkout.
func NewOrderMessage(o Order) string {
	var b strings.Builder
	b.WriteString("*PESANAN BARU (ID: " + o.ID.String() + ")*\n\n")
	b.WriteString("Halo Admin,\nSaya ingin memesan barang berikut:\n\n")
	for _, it := range o.Items {
		b.WriteString("*" + it.Name + "*\n")
		b.WriteString(rupiah.Sprintf("Qty: %d\n", it.Quantity))
		b.WriteString("Harga: " + FormatRupiah(it.Subtotal()) + "\n")
		b.WriteString("------------------------\n")
	}
	b.WriteString("*TOTAL PESANAN: " + FormatRupiah(o.TotalPrice) + "*\n\n")
	b.WriteString("Email Pelanggan: " + o.CustomerEmail + "\n")
	b.WriteString("Mohon konfirmasi ketersediaan dan totalnya.\nTerima kasih.")
	return b.String()
}

// InquiryMessage is the question a customer sends about an open order.
func InquiryMessage(o Order, storeName string) string {
	var b strings.Builder
	b.WriteString("Halo Admin " + storeName + ",\n\n")
	b.WriteString("Saya ingin bertanya mengenai pesanan saya dengan ID: *" + o.ID.String() + "*\n\n")
	b.WriteString("Detail Pesanan:\n")
	for _, it := range o.Items {
		b.WriteString(rupiah.Sprintf("- %s (Qty: %d)\n", it.Name, it.Quantity))
	}
	b.WriteString("Total: " + FormatRupiah(o.TotalPrice) + "\n")
	b.WriteString("Status Saat Ini: " + o.Status.Label() + "\n\n")
	b.WriteString("Mohon informasinya. Terima kasih.")
	return b.String()
}

// WhatsAppLink builds a wa.me deep link with a prefilled message.
func WhatsAppLink(number, text string) string {
	return "https://wa.me/" + tenantsservice.NormalizeWhatsApp(number) + "?" + url.Values{"text": {text}}.Encode()
}
