package billing

type InvoiceID string

type Invoice struct {
	id     InvoiceID
	number string
	order  *Order
}
