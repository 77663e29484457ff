package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
)

const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// gateway intents: guilds, guild messages, message content
const defaultIntents = 1<<0 | 1<<9 | 1<<15

// gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// EventCallbacks receive dispatched gateway events. A nil callback
// skips that event type. Callbacks run on the read loop goroutine and
// should hand work off quickly.
type EventCallbacks struct {
	MessageCreate     func(msg Message) error
	InteractionCreate func(ic Interaction) error
	Ready             func(sessionID string) error
}

// Gateway maintains the websocket connection to the platform event
// stream, reconnecting with backoff on any error.
type Gateway struct {
	URL       string
	Token     string
	Intents   int
	Callbacks EventCallbacks
	Logger    *slog.Logger

	// last dispatch sequence, echoed in heartbeats
	lastSeq int64
}

func NewGateway(token string, callbacks EventCallbacks, logger *slog.Logger) *Gateway {
	return &Gateway{
		URL:       DefaultGatewayURL,
		Token:     token,
		Intents:   defaultIntents,
		Callbacks: callbacks,
		Logger:    logger.With("system", "gateway"),
	}
}

type gatewayPayload struct {
	Op   int             `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
	Seq  *int64          `json:"s,omitempty"`
	Type string          `json:"t,omitempty"`
}

// Run connects and consumes the event stream until ctx is cancelled,
// reconnecting on any connection error.
func (g *Gateway) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := g.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		gatewayReconnects.Inc()
		g.Logger.Warn("gateway connection lost, reconnecting", "err", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > time.Minute {
			backoff = time.Minute
		}
	}
}

func (g *Gateway) runConnection(ctx context.Context) error {
	dialer := websocket.DefaultDialer
	g.Logger.Info("connecting to event stream", "upstream", g.URL)
	con, _, err := dialer.DialContext(ctx, g.URL, http.Header{
		"User-Agent": []string{fmt.Sprintf("warden/%s", versioninfo.Short())},
	})
	if err != nil {
		return fmt.Errorf("subscribing to event stream failed (dialing): %w", err)
	}
	defer con.Close()

	// first frame must be hello, carrying the heartbeat interval
	var hello gatewayPayload
	if err := con.ReadJSON(&hello); err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello frame, got op %d", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.Data, &helloData); err != nil {
		return fmt.Errorf("parsing hello: %w", err)
	}

	if err := g.identify(con); err != nil {
		return fmt.Errorf("identifying: %w", err)
	}

	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	hbErr := make(chan error, 1)
	go g.heartbeatLoop(hbCtx, con, time.Duration(helloData.HeartbeatInterval)*time.Millisecond, hbErr)

	readErr := make(chan error, 1)
	go func() { readErr <- g.readLoop(con) }()

	select {
	case <-ctx.Done():
		_ = con.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return ctx.Err()
	case err := <-hbErr:
		return err
	case err := <-readErr:
		return err
	}
}

func (g *Gateway) identify(con *websocket.Conn) error {
	identify := map[string]interface{}{
		"op": opIdentify,
		"d": map[string]interface{}{
			"token":   g.Token,
			"intents": g.Intents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "warden",
				"device":  "warden",
			},
		},
	}
	return con.WriteJSON(identify)
}

func (g *Gateway) heartbeatLoop(ctx context.Context, con *websocket.Conn, interval time.Duration, out chan<- error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			seq := atomic.LoadInt64(&g.lastSeq)
			hb := map[string]interface{}{"op": opHeartbeat, "d": seq}
			if err := con.WriteJSON(hb); err != nil {
				out <- fmt.Errorf("writing heartbeat: %w", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) readLoop(con *websocket.Conn) error {
	for {
		var payload gatewayPayload
		if err := con.ReadJSON(&payload); err != nil {
			return fmt.Errorf("reading event stream: %w", err)
		}
		if payload.Seq != nil {
			atomic.StoreInt64(&g.lastSeq, *payload.Seq)
		}

		switch payload.Op {
		case opDispatch:
			if err := g.handleDispatch(payload); err != nil {
				g.Logger.Error("event handler failed", "type", payload.Type, "err", err)
			}
		case opHeartbeatACK:
			// nothing to do
		case opReconnect:
			return errors.New("upstream requested reconnect")
		case opInvalidSession:
			return errors.New("upstream invalidated session")
		default:
			g.Logger.Debug("unhandled gateway op", "op", payload.Op)
		}
	}
}

func (g *Gateway) handleDispatch(payload gatewayPayload) error {
	gatewayEvents.WithLabelValues(payload.Type).Inc()
	switch payload.Type {
	case "READY":
		if g.Callbacks.Ready == nil {
			return nil
		}
		var ready struct {
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(payload.Data, &ready); err != nil {
			return err
		}
		return g.Callbacks.Ready(ready.SessionID)
	case "MESSAGE_CREATE":
		if g.Callbacks.MessageCreate == nil {
			return nil
		}
		var msg Message
		if err := json.Unmarshal(payload.Data, &msg); err != nil {
			return err
		}
		return g.Callbacks.MessageCreate(msg)
	case "INTERACTION_CREATE":
		if g.Callbacks.InteractionCreate == nil {
			return nil
		}
		var ic Interaction
		if err := json.Unmarshal(payload.Data, &ic); err != nil {
			return err
		}
		return g.Callbacks.InteractionCreate(ic)
	default:
		return nil
	}
}
