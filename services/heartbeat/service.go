// Package heartbeat periodically reports that the firmware is alive, with the live task
// table so a stuck or duplicated trigger worker is visible from the bus.
package heartbeat

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cast"

	"actorcode-go/bus"
	"actorcode-go/logging"
	"actorcode-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	TopicHeartbeat       = bus.Topic{"sys", "heartbeat"}
)

const defaultInterval = 10 * time.Second

// Beat is the heartbeat payload.
type Beat struct {
	TSms     int64    `json:"ts_ms"`
	UptimeMs int64    `json:"uptime_ms"`
	Tasks    []string `json:"tasks"`
}

type Service struct {
	Tasks func() []string // optional task table source
	Clock clock.Clock
	Log   logging.Logger
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	start := s.Clock.Now()
	tick := s.Clock.Ticker(defaultInterval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			s.Log.Debugf("heartbeat service stopping")
			return
		case <-tick.C:
			b := Beat{TSms: timex.NowMs(s.Clock), UptimeMs: s.Clock.Since(start).Milliseconds()}
			if s.Tasks != nil {
				b.Tasks = s.Tasks()
			}
			conn.Publish(conn.NewMessage(TopicHeartbeat, b, false))
			s.Log.Infof("Heartbeat tasks=%v", b.Tasks)
		case msg := <-cfgSub.Channel():
			// {"interval": <seconds>}
			m, err := cast.ToStringMapE(msg.Payload)
			if err != nil {
				s.Log.Warnf("heartbeat config: %v", err)
				continue
			}
			iv, err := cast.ToFloat64E(m["interval"])
			if err != nil || iv <= 0 {
				s.Log.Warnf("heartbeat config: bad interval %v", m["interval"])
				continue
			}
			tick.Reset(time.Duration(iv * float64(time.Second)))
			s.Log.Infof("Heartbeat interval set to %v seconds", iv)
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.Clock == nil {
		s.Clock = clock.New()
	}
	if s.Log == nil {
		s.Log = logging.Discard()
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
