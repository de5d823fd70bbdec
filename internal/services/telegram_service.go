package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/models"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramService handles sending notifications to Telegram.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiBase     string
	httpClient  *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiBase:     telegramAPIBase,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(chatID, text string) error {
	if s.botToken == "" {
		log.Println("[Telegram] Bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Telegram] Failed to send message: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Telegram] Unexpected status: %d", resp.StatusCode)
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(text string) error {
	if s.adminChatID == "" {
		log.Println("[Telegram] Admin chat ID not configured")
		return nil
	}
	return s.SendMessage(s.adminChatID, text)
}

// OrderNotification contains order data for Telegram notification.
type OrderNotification struct {
	OrderID       string
	CustomerName  string
	CustomerEmail string
	Items         []OrderItemNotification
	Total         decimal.Decimal
	Currency      string
	ShipTo        string
}

// OrderItemNotification contains order item data.
type OrderItemNotification struct {
	Title    string
	Options  string
	Quantity int
	Price    decimal.Decimal
}

// NewOrderNotification summarizes a finalized order.
func NewOrderNotification(user models.User, order models.Order, currency string) OrderNotification {
	n := OrderNotification{
		OrderID:       order.ID.String(),
		CustomerName:  strings.TrimSpace(user.FirstName + " " + user.LastName),
		CustomerEmail: user.Email,
		Total:         order.Total(),
		Currency:      currency,
	}
	if order.ShippingAddress != nil {
		a := order.ShippingAddress
		n.ShipTo = strings.TrimSpace(fmt.Sprintf("%s %s, %s %s", a.StreetAddress, a.ApartmentAddress, a.Zip, a.Country))
	}
	for _, line := range order.Items {
		title := ""
		if line.Item != nil {
			title = line.Item.Title
		}
		n.Items = append(n.Items, OrderItemNotification{
			Title:    title,
			Options:  optionSummary(line.OptionValues),
			Quantity: line.Quantity,
			Price:    line.FinalPrice(),
		})
	}
	return n
}

// FormatPrice formats an amount with thousand separators and the currency code.
func FormatPrice(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "usd"
	}
	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var result strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}

	return sign + result.String() + "." + frac + " " + strings.ToUpper(currency)
}

// NotifyOrderPaid sends notification about a paid order to the admin chat.
func (s *TelegramService) NotifyOrderPaid(order OrderNotification) error {
	if s.adminChatID == "" {
		return nil
	}
	return s.SendToAdmin(formatOrderPaid(order))
}

func formatOrderPaid(order OrderNotification) string {
	var itemsList strings.Builder
	for i, item := range order.Items {
		name := html.EscapeString(item.Title)
		if item.Options != "" {
			name += " (" + html.EscapeString(item.Options) + ")"
		}
		itemsList.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %d pcs = %s\n",
			i+1, name, item.Quantity, FormatPrice(item.Price, order.Currency)))
	}

	message := fmt.Sprintf(`<b>🛒 NEW PAID ORDER</b>
<b>📋 Order:</b> %s
<b>👤 Customer:</b> %s
<b>✉️ Email:</b> %s
<b>📦 Items:</b>
%s
<b>💰 Total:</b> %s
<b>📍 Ship to:</b> %s
━━━━━━━━━━━━━━━━━━`,
		order.OrderID,
		html.EscapeString(order.CustomerName),
		html.EscapeString(order.CustomerEmail),
		itemsList.String(),
		FormatPrice(order.Total, order.Currency),
		html.EscapeString(order.ShipTo),
	)
	return strings.TrimSpace(message)
}

// UnreconciledChargeAlert describes a charge whose order was not finalized.
type UnreconciledChargeAlert struct {
	ChargeID string
	UserID   string
	OrderID  string
	Amount   string
	Cause    string
}

// NotifyUnreconciledCharge alerts operators that money was captured for an
// order that is still active.
func (s *TelegramService) NotifyUnreconciledCharge(alert UnreconciledChargeAlert) error {
	message := fmt.Sprintf(`<b>🚨 CHARGE NEEDS RECONCILIATION</b>
<b>💳 Charge:</b> %s
<b>👤 User:</b> %s
<b>📋 Order:</b> %s
<b>💰 Amount:</b> %s
<b>❗ Cause:</b> %s`,
		html.EscapeString(alert.ChargeID),
		alert.UserID,
		alert.OrderID,
		alert.Amount,
		html.EscapeString(alert.Cause),
	)
	return s.SendToAdmin(strings.TrimSpace(message))
}

func optionSummary(values []models.OptionValue) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v.Option != nil {
			parts = append(parts, v.Option.Name+": "+v.Value)
		} else {
			parts = append(parts, v.Value)
		}
	}
	return strings.Join(parts, ", ")
}
