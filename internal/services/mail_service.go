package services

import (
	"fmt"
	"html"
	"log"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/example/storefront/internal/models"
)

// MailService sends transactional mail through SendGrid.
type MailService struct {
	apiKey      string
	fromAddress string
	fromName    string
}

// NewMailService creates a new MailService. An empty apiKey disables sending.
func NewMailService(apiKey, fromAddress, fromName string) *MailService {
	return &MailService{apiKey: apiKey, fromAddress: fromAddress, fromName: fromName}
}

// Receipt is a rendered order receipt.
type Receipt struct {
	Email     string
	Name      string
	Subject   string
	PlainText string
	HTML      string
}

// BuildReceipt renders the receipt for a paid order.
func BuildReceipt(user models.User, order models.Order, currency string) Receipt {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)

	var text, body strings.Builder
	text.WriteString(fmt.Sprintf("Thank you for your order %s.\n\n", order.ID))
	body.WriteString(fmt.Sprintf("<p>Thank you for your order <b>%s</b>.</p><ul>", order.ID))

	for _, line := range order.Items {
		title := ""
		if line.Item != nil {
			title = line.Item.Title
		}
		if opts := optionSummary(line.OptionValues); opts != "" {
			title += " (" + opts + ")"
		}
		price := FormatPrice(line.FinalPrice(), currency)
		text.WriteString(fmt.Sprintf("%d x %s: %s\n", line.Quantity, title, price))
		body.WriteString(fmt.Sprintf("<li>%d x %s: %s</li>", line.Quantity, html.EscapeString(title), price))
	}
	body.WriteString("</ul>")

	if order.Coupon != nil {
		discount := FormatPrice(order.Coupon.Amount, currency)
		text.WriteString(fmt.Sprintf("Coupon %s: -%s\n", order.Coupon.Code, discount))
		body.WriteString(fmt.Sprintf("<p>Coupon %s: -%s</p>", html.EscapeString(order.Coupon.Code), discount))
	}

	total := FormatPrice(order.Total(), currency)
	text.WriteString(fmt.Sprintf("\nTotal: %s\n", total))
	body.WriteString(fmt.Sprintf("<p><b>Total: %s</b></p>", total))

	return Receipt{
		Email:     user.Email,
		Name:      name,
		Subject:   fmt.Sprintf("Your order receipt (%s)", total),
		PlainText: text.String(),
		HTML:      body.String(),
	}
}

// SendReceipt mails the receipt to the customer.
func (s *MailService) SendReceipt(r Receipt) error {
	if s == nil || s.apiKey == "" {
		log.Println("[Mail] SendGrid API key not configured, skipping receipt")
		return nil
	}
	if s.fromAddress == "" {
		return fmt.Errorf("from address is empty")
	}
	if r.Email == "" {
		return fmt.Errorf("recipient address is empty")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromAddress),
		r.Subject,
		mail.NewEmail(r.Name, r.Email),
		r.PlainText,
		r.HTML,
	)

	response, err := sendgrid.NewSendClient(s.apiKey).Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		log.Printf("[Mail] SendGrid error status=%d, body=%s", response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid send failed: status=%d", response.StatusCode)
	}

	log.Printf("[Mail] receipt sent: status=%d to=%s", response.StatusCode, r.Email)
	return nil
}
