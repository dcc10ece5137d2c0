package mailer

import "embed"

const (
	FromName                   = "Sales Core"
	maxRetires                 = 3
	PaymentPaidReceiptTemplate = "payment_paid.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
