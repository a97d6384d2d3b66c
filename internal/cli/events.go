package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/fitness-membership/internal/lib/rabbitmq"
)

func newEventsCommand(log *slog.Logger) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail membership and message events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.RabbitMQ.Enabled {
				return fmt.Errorf("rabbitmq is disabled in config")
			}

			conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
			if err != nil {
				return err
			}
			defer conn.Close()

			queues := rabbitmq.GetEventQueues()
			ch, err := rabbitmq.SetupChannel(conn, queues)
			if err != nil {
				return err
			}
			defer ch.Close()

			printer := &eventPrinter{out: cmd.OutOrStdout()}
			for _, q := range queues {
				if err = rabbitmq.ConsumeMessages(cmd.Context(), log, ch, q.QueueName, workers, printer.handle); err != nil {
					return err
				}
			}
			log.Info("listening for events", slog.Int("queues", len(queues)))
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 2, "concurrent handlers per queue")
	return cmd
}

// eventPrinter печатает события одной строкой: ключ маршрутизации и компактный JSON.
// Тело, которое не разбирается как JSON, печатается как есть.
type eventPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *eventPrinter) handle(routingKey string, body []byte) error {
	line := body
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err == nil {
		line = buf.Bytes()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.out, "%s %s\n", routingKey, line)
	return err
}
