package gateway

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quote-engine-go/infrastructure/alert"
	"quote-engine-go/internal/engine"
	"quote-engine-go/metrics"
)

// FeedConfig tunes the websocket connection.
type FeedConfig struct {
	URL          string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	WriteTimeout time.Duration
}

// Feed maintains the snapshot websocket: snapshots flow out on a channel
// and responses are written back on the same connection. It reconnects
// with exponential backoff and never returns until the context ends.
type Feed struct {
	cfg    FeedConfig
	log    *zap.Logger
	alerts *alert.Manager
}

// NewFeed creates a feed client.
func NewFeed(cfg FeedConfig, log *zap.Logger, alerts *alert.Manager) *Feed {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = 500 * time.Millisecond
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{cfg: cfg, log: log, alerts: alerts}
}

// Run connects and pumps until ctx is canceled. Snapshots are delivered
// on snapshots; responses read from responses are written back.
func (f *Feed) Run(ctx context.Context, snapshots chan<- engine.Snapshot, responses <-chan engine.Response) error {
	backoff := f.cfg.ReconnectMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
		if err != nil {
			f.log.Warn("feed dial failed", zap.String("url", f.cfg.URL), zap.Error(err))
			metrics.FeedReconnects.Inc()
			if f.alerts != nil {
				_ = f.alerts.Warning("snapshot feed unreachable", map[string]interface{}{"url": f.cfg.URL})
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, f.cfg.ReconnectMax)
			continue
		}
		backoff = f.cfg.ReconnectMin
		f.log.Info("feed connected", zap.String("url", f.cfg.URL))

		err = f.pump(ctx, conn, snapshots, responses)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.log.Warn("feed connection lost", zap.Error(err))
		metrics.FeedReconnects.Inc()
	}
}

// pump runs the read and write loops for one connection and returns when
// either fails.
func (f *Feed) pump(ctx context.Context, conn *websocket.Conn, snapshots chan<- engine.Snapshot, responses <-chan engine.Response) error {
	errCh := make(chan error, 2)
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			snap, skipped, err := ParseSnapshot(raw, time.Now())
			if err != nil {
				f.log.Warn("snapshot rejected", zap.Error(err))
				continue
			}
			for _, id := range skipped {
				f.log.Warn("malformed book skipped", zap.String("market", id), zap.Uint64("seq", snap.Seq))
			}
			select {
			case snapshots <- snap:
			case <-pctx.Done():
				errCh <- pctx.Err()
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-pctx.Done():
				errCh <- pctx.Err()
				return
			case resp := <-responses:
				raw, err := EncodeResponse(resp)
				if err != nil {
					f.log.Error("response not encodable", zap.Error(err))
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
					errCh <- err
					return
				}
			}
		}
	}()

	err := <-errCh
	cancel()
	return err
}
