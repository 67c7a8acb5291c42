package email

import (
	"fmt"
	"net/smtp"

	"github.com/shopspring/decimal"
)

// Service handles email sending via SMTP
type Service struct {
	addr string
	from string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(host string, port int, from string) *Service {
	return &Service{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
		send: smtp.SendMail,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to, orderID string, total decimal.Decimal, items []OrderItem) error {
	subject := fmt.Sprintf("Order confirmation #%s", shortID(orderID))
	return s.deliver(to, subject, BuildOrderConfirmationBody(orderID, total, items))
}

// SendStatusUpdate tells the customer their order moved to a new status
func (s *Service) SendStatusUpdate(to, orderID, status string) error {
	subject := fmt.Sprintf("Order #%s is now %s", shortID(orderID), status)
	return s.deliver(to, subject, BuildStatusUpdateBody(orderID, status))
}

func (s *Service) deliver(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	return s.send(s.addr, nil, s.from, []string{to}, []byte(msg))
}

func shortID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}
