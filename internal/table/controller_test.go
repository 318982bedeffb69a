package table

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerlite/tableclient/internal/protocol"
)

func newTestController() *Controller {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New("T1", logger)
}

func TestWelcomePublishesIdentity(t *testing.T) {
	c := newTestController()

	var got string
	c.SetOnIdentity(func(pid string) { got = pid })

	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgWelcome, PID: "abcdef123456"})

	assert.Equal(t, "abcdef123456", c.MyPID())
	assert.Equal(t, "abcdef123456", got)

	logs := c.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Joined as abcdef12", logs[0].Message)
}

func TestStateReplacesSnapshotWholesale(t *testing.T) {
	c := newTestController()

	first := &protocol.TableState{TableID: "T1", Pot: 100, Board: []string{"Ah"}}
	second := &protocol.TableState{TableID: "T1", Pot: 250}

	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgState, State: first})
	assert.Same(t, first, c.Snapshot())

	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgState, State: second})
	got := c.Snapshot()
	assert.Same(t, second, got)
	assert.Equal(t, 250, got.Pot)
	assert.Empty(t, got.Board, "no partial merge of the previous snapshot")
}

func TestInfoAppendsLogAndDetectsOutcome(t *testing.T) {
	c := newTestController()

	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgInfo, Message: "Dealing Flop: Ah Kd Qs"})
	assert.Equal(t, "", c.HandOutcome())

	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgInfo, Message: "Alice wins 120 chips"})
	assert.Equal(t, "Alice wins 120 chips", c.HandOutcome())

	// A newer outcome overwrites one still pending display.
	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgInfo, Message: "Split pot! Alice, Bob each win 60"})
	assert.Equal(t, "Split pot! Alice, Bob each win 60", c.HandOutcome())

	c.ClearHandOutcome()
	assert.Equal(t, "", c.HandOutcome())

	assert.Len(t, c.Logs(), 3)
}

func TestRollingLogCap(t *testing.T) {
	c := newTestController()

	for i := 0; i < 130; i++ {
		c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgInfo, Message: fmt.Sprintf("event %d", i)})
	}

	logs := c.Logs()
	require.Len(t, logs, 50)
	assert.Equal(t, "event 80", logs[0].Message, "oldest entries drop first")
	assert.Equal(t, "event 129", logs[49].Message)
}

func TestAppendLogLocalLine(t *testing.T) {
	c := newTestController()
	c.AppendLog("Not connected!")

	logs := c.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "Not connected!", logs[0].Message)
}

func TestEventSinkReceivesEntries(t *testing.T) {
	c := newTestController()

	type event struct {
		tableID, message string
	}
	var events []event
	c.SetEventSink(func(tableID, message string, _ time.Time) {
		events = append(events, event{tableID, message})
	})

	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgInfo, Message: "Bob calls $20"})
	c.AppendLog("Action: fold")

	require.Len(t, events, 2)
	assert.Equal(t, event{"T1", "Bob calls $20"}, events[0])
	assert.Equal(t, event{"T1", "Action: fold"}, events[1])
}

func TestOnChangeFiresPerFrame(t *testing.T) {
	c := newTestController()

	n := 0
	c.SetOnChange(func() { n++ })

	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgWelcome, PID: "abc"})
	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgState, State: &protocol.TableState{TableID: "T1"}})
	c.HandleMessage(&protocol.ServerMessage{Type: protocol.MsgInfo, Message: "hi"})

	assert.Equal(t, 3, n)
}

func TestIsHandOutcome(t *testing.T) {
	assert.True(t, IsHandOutcome("Alice wins 120 chips"))
	assert.True(t, IsHandOutcome("Bob WINS the main pot"))
	assert.True(t, IsHandOutcome("Split Pot! Alice and Bob each take 60"))
	assert.False(t, IsHandOutcome("Dealing Turn: 2c"))
	assert.False(t, IsHandOutcome("Bob joined the waitlist"))
	assert.False(t, IsHandOutcome("winter is coming"))
}
