// internal/client/client.go
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pokerlite/tableclient/internal/auth"
	"github.com/pokerlite/tableclient/internal/identity"
	"github.com/pokerlite/tableclient/internal/protocol"
	"github.com/pokerlite/tableclient/internal/table"
)

// Status describes the push channel lifecycle. Transitions are linear:
// Closed -> Opening -> Open -> Closed. There is no automatic reconnect;
// reconnection is a fresh, caller-initiated Connect.
type Status string

const (
	StatusClosed  Status = "closed"
	StatusOpening Status = "opening"
	StatusOpen    Status = "open"
)

// writeTimeout bounds every outbound frame write.
const writeTimeout = 5 * time.Second

// Client owns the push channel for one table controller. At most one channel
// is active per Client; Connect closes any existing one first.
type Client struct {
	logger   *logrus.Logger
	baseURL  string
	resolver *identity.Resolver
	ctrl     *table.Controller

	mu         sync.Mutex
	conn       *websocket.Conn
	status     Status
	cancelRead context.CancelFunc
	connID     uuid.UUID
	onStatus   func(Status)
}

// New builds a Client over the game service's websocket base URL,
// e.g. "ws://localhost:8001".
func New(baseURL string, resolver *identity.Resolver, ctrl *table.Controller, logger *logrus.Logger) *Client {
	return &Client{
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
		resolver: resolver,
		ctrl:     ctrl,
		status:   StatusClosed,
	}
}

// SetOnStatus registers a callback for status transitions. It is invoked
// outside the client lock.
func (c *Client) SetOnStatus(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// Status returns the current channel status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect opens the push channel for tableID and joins as displayName. An
// auth token, when present, replaces any stored participant id: the server
// derives identity from the token. Without one, the resolver may supply a
// previously assigned id for this exact table and name.
func (c *Client) Connect(ctx context.Context, displayName, tableID, authToken string) error {
	c.closeChannel(websocket.StatusNormalClosure, "reconnecting")
	c.setStatus(StatusOpening)

	wsURL := fmt.Sprintf("%s/ws/%s", c.baseURL, tableID)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		c.setStatus(StatusClosed)
		c.ctrl.AppendLog("Connection error")
		return fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}

	join := protocol.JoinMessage{Type: protocol.MsgJoin, Name: displayName}
	if authToken != "" {
		if auth.Expired(authToken, time.Now()) {
			c.logger.Warnf("auth token for table %s is expired; the server will likely reject the join", tableID)
		}
		join.Token = authToken
	} else {
		join.PID = c.resolver.Resolve(ctx, tableID, displayName, false)
	}

	if err := writeJSON(ctx, conn, join); err != nil {
		conn.Close(websocket.StatusInternalError, "join failed")
		c.setStatus(StatusClosed)
		c.ctrl.AppendLog("Connection error")
		return fmt.Errorf("failed to send join request: %w", err)
	}

	// Persist whatever id the server assigns under this table and name.
	c.ctrl.SetOnIdentity(func(pid string) {
		c.resolver.Remember(context.Background(), tableID, displayName, pid)
	})

	connID := uuid.New()
	readCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.cancelRead = cancel
	c.connID = connID
	c.mu.Unlock()
	c.setStatus(StatusOpen)

	c.ctrl.AppendLog("Connected to table: " + tableID)
	c.logger.Infof("conn %s: joined table %s as %q", connID, tableID, displayName)

	go c.readFrames(readCtx, conn, connID)
	return nil
}

// Disconnect closes the channel. When tableID is supplied, that table's
// identity record is cleared so the next join gets a fresh identifier.
func (c *Client) Disconnect(tableID string) {
	c.closeChannel(websocket.StatusNormalClosure, "client disconnect")
	if tableID != "" {
		c.resolver.Forget(context.Background(), tableID)
	}
}

// SubmitAction sends a betting action. Amount is meaningful for raise and
// call and ignored otherwise.
func (c *Client) SubmitAction(action string, amount int) {
	ok := c.send(protocol.ActionMessage{Type: protocol.MsgAction, Action: action, Amount: amount})
	if !ok {
		return
	}
	if amount > 0 {
		c.ctrl.AppendLog(fmt.Sprintf("Action: %s $%d", action, amount))
	} else {
		c.ctrl.AppendLog("Action: " + action)
	}
}

// StartHand asks the server to deal the next hand.
func (c *Client) StartHand() {
	if c.send(protocol.CommandMessage{Type: protocol.MsgStart}) {
		c.ctrl.AppendLog("Started new hand")
	}
}

// JoinWaitlist queues the caller for a seat.
func (c *Client) JoinWaitlist() {
	if c.send(protocol.CommandMessage{Type: protocol.MsgJoinWaitlist}) {
		c.ctrl.AppendLog("Joined the waitlist")
	}
}

// LeaveWaitlist removes the caller from the seat queue.
func (c *Client) LeaveWaitlist() {
	if c.send(protocol.CommandMessage{Type: protocol.MsgLeaveWaitlist}) {
		c.ctrl.AppendLog("Left the waitlist")
	}
}

// send writes v when the channel is open. When it is not, it appends a
// local-only log line and reports false; it never panics the caller.
func (c *Client) send(v interface{}) bool {
	c.mu.Lock()
	conn := c.conn
	open := c.status == StatusOpen
	c.mu.Unlock()

	if !open || conn == nil {
		c.ctrl.AppendLog("Not connected!")
		return false
	}
	if err := writeJSON(context.Background(), conn, v); err != nil {
		c.logger.Warnf("failed to write command: %v", err)
		return false
	}
	return true
}

// readFrames drains the channel until error, closure or cancellation,
// feeding decoded frames into the controller. Malformed frames are dropped;
// subsequent frames still flow.
func (c *Client) readFrames(ctx context.Context, conn *websocket.Conn, connID uuid.UUID) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				c.logger.Infof("conn %s: closed normally", connID)
			case strings.Contains(err.Error(), "context canceled"):
				c.logger.Infof("conn %s: read loop canceled", connID)
			default:
				c.logger.Warnf("conn %s: read error: %v (status: %d)", connID, err, status)
			}
			c.markDisconnected(connID)
			return
		}
		if msgType != websocket.MessageText {
			c.logger.Warnf("conn %s: ignoring non-text message type %d", connID, msgType)
			continue
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Debugf("conn %s: dropping malformed frame: %v", connID, err)
			continue
		}
		c.ctrl.HandleMessage(msg)
	}
}

// markDisconnected records a channel-level closure observed by the read
// loop. A connID mismatch means a newer Connect already took over.
func (c *Client) markDisconnected(connID uuid.UUID) {
	c.mu.Lock()
	if c.connID != connID {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.cancelRead = nil
	changed := c.status != StatusClosed
	c.status = StatusClosed
	fn := c.onStatus
	c.mu.Unlock()

	if changed {
		c.ctrl.AppendLog("Disconnected from server")
		if fn != nil {
			fn(StatusClosed)
		}
	}
}

// closeChannel tears down the active channel, if any.
func (c *Client) closeChannel(code websocket.StatusCode, reason string) {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancelRead
	c.conn = nil
	c.cancelRead = nil
	c.connID = uuid.Nil
	changed := c.status != StatusClosed
	c.status = StatusClosed
	fn := c.onStatus
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close(code, reason)
	}
	if changed && fn != nil {
		fn(StatusClosed)
	}
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	changed := c.status != status
	c.status = status
	fn := c.onStatus
	c.mu.Unlock()
	if changed && fn != nil {
		fn(status)
	}
}

// writeJSON marshals v and writes it as one text frame with a write timeout.
func writeJSON(ctx context.Context, conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
