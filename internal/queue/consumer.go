package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andikarp/bus-ticketing/internal/otp"
)

// StartConsumer connects to RabbitMQ, declares both durable queues and
// consumes them on one channel.  In a full deployment the notification
// service sits here; this consumer stands in for it by writing a
// structured log line per event.  The function runs a reconnect loop with
// exponential backoff and never returns under normal operation; failing
// messages are rejected without requeue so a poison message cannot wedge
// the queue.
func StartConsumer() error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			zap.L().Warn("consumer dial failed, retrying",
				zap.Duration("backoff", backoff), zap.Error(err))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			zap.L().Warn("consume loop ended, reconnecting", zap.Error(err))
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		zap.L().Warn("set QoS failed", zap.Error(err))
	}

	for _, name := range []string{OrderConfirmedQueue, OTPIssuedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	orderMsgs, err := ch.Consume(OrderConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", OrderConfirmedQueue, err)
	}
	otpMsgs, err := ch.Consume(OTPIssuedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", OTPIssuedQueue, err)
	}

	for {
		select {
		case d, ok := <-orderMsgs:
			if !ok {
				return errors.New("order deliveries channel closed")
			}
			ackOrReject(d, handleOrderConfirmed(d.Body))
		case d, ok := <-otpMsgs:
			if !ok {
				return errors.New("otp deliveries channel closed")
			}
			ackOrReject(d, handleOTPIssued(d.Body))
		}
	}
}

func ackOrReject(d amqp.Delivery, err error) {
	if err != nil {
		zap.L().Error("handle message failed", zap.Error(err))
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func handleOrderConfirmed(body []byte) error {
	var ev OrderConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	zap.L().Info("order confirmed",
		zap.String("order_ref", ev.OrderRef),
		zap.Uint64("user_id", ev.UserID),
		zap.Uint64("route_id", ev.RouteID),
		zap.Strings("seats", ev.Seats),
		zap.Int64("total_bayar", ev.TotalBayar),
		zap.String("confirmed_at", ev.ConfirmedAt),
	)
	return nil
}

func handleOTPIssued(body []byte) error {
	var ev OTPIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	// Only a masked reference of the code reaches the log.
	zap.L().Info("otp issued",
		zap.String("email", ev.Email),
		zap.String("code_ref", otp.FormatRef(ev.Code)),
		zap.String("issued_at", ev.IssuedAt),
		zap.String("resend_after", ev.ResendAfter),
	)
	return nil
}
