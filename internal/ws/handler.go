package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerace-backend/internal/hub"
	"github.com/DoyleJ11/typerace-backend/internal/types"
	wire "github.com/DoyleJ11/typerace-backend/pkg/types"
)

type Options struct {
	OriginPatterns  []string
	OutboxSize      int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageBytes int64
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 32
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 32 << 10
	}
	return o
}

// client is the hub-facing side of one websocket. Send and Close are only
// called from the hub loop.
type client struct {
	id     string
	outbox chan wire.ServerMessage
	closed bool
}

func (c *client) ID() string { return c.id }

func (c *client) Send(m wire.ServerMessage) bool {
	if c.closed {
		return false
	}
	select {
	case c.outbox <- m:
		return true
	default:
		// Client is slow/full - drop them.
		c.Close()
		return false
	}
}

func (c *client) Close() {
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "ws"))

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(opts.MaxMessageBytes)

		c := &client{id: uuid.NewString(), outbox: make(chan wire.ServerMessage, opts.OutboxSize)}
		log := log.With(zap.String("conn", c.id))
		log.Debug("connection opened", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		defer h.Post(context.Background(), hub.Disconnect{ConnID: c.id})

		go writeLoop(ctx, conn, c.outbox, opts, log)

		// Clients may stay silent for a whole lobby wait; liveness is checked
		// with pings from writeLoop instead of a read deadline.
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("connection closed")
				default:
					log.Debug("connection lost", zap.Error(err))
				}
				return
			}

			msg, err := types.Decode(data)
			if err != nil {
				if !errors.Is(err, types.ErrUnknownType) {
					log.Warn("dropping malformed message", zap.Error(err))
				}
				continue
			}

			if !h.Post(ctx, hub.Inbound{Conn: c, Msg: msg}) {
				return
			}
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan wire.ServerMessage, opts Options, log *zap.Logger) {
	ping := time.NewTicker(opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				log.Debug("ping failed", zap.Error(err))
				_ = conn.CloseNow()
				return
			}
		case msg, ok := <-outbox:
			if !ok {
				// The hub let go of this connection (slow, replaced or shutting down).
				_ = conn.Close(websocket.StatusGoingAway, "closed by server")
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				log.Error("encode message", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err = conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				log.Debug("write failed", zap.Error(err))
				_ = conn.CloseNow()
				return
			}
		}
	}
}
