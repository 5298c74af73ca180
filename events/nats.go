package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const DefaultSubjectPrefix = "brackets"

// NATSPublisher publishes events on "<prefix>.<tournament>.<type>", e.g.
// brackets.42.match_updated.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func ConnectNATS(url, name string) (*NATSPublisher, error) {
	nc, err := nats.Connect(
		url,
		nats.Name(name),
		nats.PingInterval(5*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return NewNATSPublisher(nc, DefaultSubjectPrefix), nil
}

func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

func Subject(prefix string, ev Event) string {
	return fmt.Sprintf("%s.%d.%s", prefix, ev.TournamentID, strings.ToLower(string(ev.Type)))
}

func (p *NATSPublisher) Notify(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.Type, err)
	}
	if err := p.nc.Publish(Subject(p.prefix, ev), data); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.Type, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
