package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"ai-docguard-be/internal/config"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/events"
	pktNats "ai-docguard-be/pkg/nats"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sessionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	plainStyle   = lipgloss.NewStyle().Bold(true)
)

type tailOptions struct {
	NatsURL   string
	EventType string
	SessionID string
	Durable   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	options := tailOptions{}

	cmd := &cobra.Command{
		Use:   "event-tail [flags]",
		Short: "Follow pipeline lifecycle events from NATS",
		Example: `  # Follow every event
  event-tail

  # Only rejections for one session
  event-tail --type SESSION_REJECTED --session 3f1c2a9e-5b7d-4e8a-9c10-2d3e4f5a6b7c`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.NatsURL == "" {
				options.NatsURL = config.Load().Infra.NatsURL
			}
			if options.NatsURL == "" {
				return fmt.Errorf("no NATS url: pass --nats-url or set NATS_URL")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return tail(ctx, options, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&options.NatsURL, "nats-url", "", "NATS server url (defaults to NATS_URL)")
	cmd.Flags().StringVar(&options.EventType, "type", "", "only this event type, e.g. SESSION_SCANNED")
	cmd.Flags().StringVar(&options.SessionID, "session", "", "only events of this session")
	cmd.Flags().StringVar(&options.Durable, "durable", "", "durable consumer name to resume from")

	return cmd
}

func tail(ctx context.Context, options tailOptions, out io.Writer) error {
	sub, err := pktNats.NewSubscriber(options.NatsURL, logger.NewNopLogger())
	if err != nil {
		return err
	}
	defer sub.Close()

	subject := pktNats.SubjectPrefix + ">"
	if options.EventType != "" {
		subject = pktNats.Subject(strings.ToUpper(options.EventType))
	}

	err = sub.Subscribe(ctx, subject, options.Durable, func(_ context.Context, event events.BaseEvent) error {
		if options.SessionID != "" && event.SessionID() != options.SessionID {
			return nil
		}
		fmt.Fprintln(out, formatEvent(event))
		return nil
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func formatEvent(event events.BaseEvent) string {
	var b strings.Builder
	b.WriteString(timeStyle.Render(event.Timestamp().Local().Format(time.TimeOnly)))
	b.WriteString(" ")
	b.WriteString(typeStyle(event.EventType()).Render(event.EventType()))
	b.WriteString(" ")
	b.WriteString(sessionStyle.Render(event.SessionID()))

	keys := make([]string, 0, len(event.Payload()))
	for k := range event.Payload() {
		if k != "session_id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, event.Payload()[k])
	}
	return b.String()
}

func typeStyle(eventType string) lipgloss.Style {
	switch eventType {
	case events.TypeSessionRejected, events.TypePipelineFailed:
		return badStyle
	case events.TypeSessionSummarized, events.TypeSessionScanned:
		return okStyle
	default:
		return plainStyle
	}
}
