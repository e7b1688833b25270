package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// archiveFile is the file, under the consumer's directory, that receives
// one line per closed day.
const archiveFile = "day-closures.log"

// ConsumerConfig locates the broker, the queue and the archive directory.
type ConsumerConfig struct {
	URL   string
	Queue string
	Dir   string
}

// StartExportConsumer connects to RabbitMQ, declares the closed-day queue
// (durable) and archives every message as a single line in
// <Dir>/day-closures.log.  It reconnects with exponential backoff and
// only returns when ctx is cancelled.  Messages that cannot be processed
// are rejected without requeue so a poison message cannot stall the loop.
func StartExportConsumer(ctx context.Context, cfg ConsumerConfig) error {
	if cfg.Queue == "" {
		cfg.Queue = DefaultDayClosedQueue
	}
	if cfg.Dir == "" {
		cfg.Dir = "logs"
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Printf("export-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, cfg)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("export-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("export-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(cfg.Dir, d.Body); err != nil {
				log.Printf("export-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(dir string, body []byte) error {
	var ev DayClosedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, archiveFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// formatLine renders one closed day, sellers ranked by sales.
func formatLine(ev DayClosedEvent) string {
	sellers := append(ev.Export.Sellers[:0:0], ev.Export.Sellers...)
	sort.SliceStable(sellers, func(i, j int) bool { return sellers[i].SaleCount > sellers[j].SaleCount })
	parts := make([]string, 0, len(sellers))
	for _, s := range sellers {
		p := fmt.Sprintf("%s=%d", s.Name, s.SaleCount)
		if s.ActiveCustomer != nil {
			p += "(open)"
		}
		parts = append(parts, p)
	}
	return fmt.Sprintf("[%s] Day closed | date=%s %s | sellers=%d | sales=%d | average=%s | events=%d | ranking=[%s]\n",
		ev.ClosedAt, ev.ClosedDate, ev.ClosedTime, ev.TotalSellers, ev.TotalSales, ev.AverageSales,
		len(ev.Export.History), strings.Join(parts, ","))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
