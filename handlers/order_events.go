package handlers

import (
	"context"

	"giftshop-backend/events"
	"giftshop-backend/utils"
)

// OrderConfirmationSender mails the customer when an order is placed. It runs
// as a bus handler, so a send error makes the bus retry.
func OrderConfirmationSender(mailer utils.Mailer) func(ctx context.Context, evt events.OrderPlaced) error {
	return func(ctx context.Context, evt events.OrderPlaced) error {
		subject, body := utils.OrderConfirmationEmail(evt.CustomerName, evt.OrderNumber, evt.ItemCount, evt.Total)
		return mailer.Send(ctx, evt.CustomerEmail, subject, body)
	}
}

// StaffOrderAlert tells the staff inbox about new orders. Without a staff
// address it does nothing.
func StaffOrderAlert(mailer utils.Mailer, staffEmail string) func(ctx context.Context, evt events.OrderPlaced) error {
	return func(ctx context.Context, evt events.OrderPlaced) error {
		if staffEmail == "" {
			return nil
		}
		subject, body := utils.NewOrderStaffEmail(evt.OrderNumber, evt.CustomerEmail, evt.IsGuest, evt.ItemCount, evt.Total)
		return mailer.Send(ctx, staffEmail, subject, body)
	}
}
