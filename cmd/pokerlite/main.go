// cmd/pokerlite/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/sirupsen/logrus"

	"github.com/pokerlite/tableclient/internal/cache"
	"github.com/pokerlite/tableclient/internal/client"
	"github.com/pokerlite/tableclient/internal/identity"
	"github.com/pokerlite/tableclient/internal/lobby"
	"github.com/pokerlite/tableclient/internal/protocol"
	"github.com/pokerlite/tableclient/internal/table"
)

func main() {
	logger := newLogger()

	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Poker", pterm.FgLightGreen.ToStyle()),
		putils.LettersFromStringWithStyle("Lite", pterm.FgDarkGray.ToStyle()),
	).Render()

	resolver := identity.NewResolver(identityStore(logger), logger)
	api := lobby.New(getEnv("LOBBY_URL", "http://localhost:8000"), logger)

	name, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Enter your display name").Show()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Player"
	}
	pterm.Println()

	token := maybeLogin(api)
	tbl := chooseTable(api)

	ctrl := table.New(tbl.TableID, logger)
	if cache.Rdb != nil {
		ctrl.SetEventSink(func(tableID, message string, ts time.Time) {
			record := cache.TableEventRecord{
				EventID:   uuid.New(),
				TableID:   tableID,
				Message:   message,
				Timestamp: ts.Unix(),
			}
			if err := cache.PublishTableEvent(context.Background(), record); err != nil {
				logger.Warnf("failed to export table event: %v", err)
			}
		})
	}

	dirty := make(chan struct{}, 1)
	ctrl.SetOnChange(func() {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	c := client.New(getEnv("GAME_WS_URL", "ws://localhost:8001"), resolver, ctrl, logger)
	c.SetOnStatus(func(status client.Status) {
		if status == client.StatusClosed {
			logger.Info("push channel closed")
		}
	})

	ctx := context.Background()
	if err := c.Connect(ctx, name, tbl.TableID, token); err != nil {
		pterm.Error.Printfln("Could not connect to table %s: %v", tbl.TableID, err)
		os.Exit(1)
	}
	pterm.Success.Printfln("Connected to %s", tbl.Name)

	runLoop(c, ctrl, tbl, dirty)
}

// runLoop alternates rendering the table with one interactive prompt. Frames
// keep arriving in the background; the dirty channel coalesces them into a
// single redraw before the next prompt.
func runLoop(c *client.Client, ctrl *table.Controller, tbl *lobby.Table, dirty chan struct{}) {
	for {
		waitForFrame(dirty, 400*time.Millisecond)
		pterm.Println()
		renderTable(ctrl)

		choice, _ := pterm.DefaultInteractiveSelect.
			WithDefaultText("Your move").
			WithOptions(buildOptions(ctrl)).
			Show()

		switch choice {
		case "Fold":
			c.SubmitAction(protocol.ActionFold, 0)
		case "Check":
			c.SubmitAction(protocol.ActionCheck, 0)
		case "All in":
			c.SubmitAction(protocol.ActionAllIn, 0)
		case "Raise":
			c.SubmitAction(protocol.ActionRaise, promptAmount("Raise to"))
		case "Deal next hand":
			c.StartHand()
		case "Join waitlist":
			c.JoinWaitlist()
		case "Leave waitlist":
			c.LeaveWaitlist()
		case "Continue":
			ctrl.ClearHandOutcome()
		case "Refresh":
			// fall through to the next render
		case "Leave table":
			c.Disconnect(tbl.TableID)
			pterm.Info.Println("Left the table. Your seat will not be held.")
			return
		case "Quit":
			c.Disconnect("")
			pterm.Info.Println("Disconnected. Rejoin with the same name to reclaim your seat.")
			return
		default:
			if strings.HasPrefix(choice, "Call") {
				c.SubmitAction(protocol.ActionCall, 0)
			}
		}
	}
}

// buildOptions derives the prompt choices from the viewer's role and turn.
func buildOptions(ctrl *table.Controller) []string {
	snap := ctrl.Snapshot()
	var options []string

	if ctrl.HandOutcome() != "" {
		options = append(options, "Continue")
	}

	if snap != nil {
		myTurn := snap.CurrentTurnPID != "" && snap.CurrentTurnPID == ctrl.MyPID()
		if myTurn {
			toCall := snap.ToCall(ctrl.MyPID())
			if toCall > 0 {
				options = append(options, fmt.Sprintf("Call ($%d)", toCall))
			} else {
				options = append(options, "Check")
			}
			options = append(options, "Raise", "All in", "Fold")
		}
		switch snap.MyRole {
		case protocol.RoleSeated:
			if !snap.HandInProgress && snap.EligiblePlayers() >= 2 {
				options = append(options, "Deal next hand")
			}
		case protocol.RoleSpectator:
			options = append(options, "Join waitlist")
		case protocol.RoleWaitlist:
			options = append(options, "Leave waitlist")
		}
	}

	return append(options, "Refresh", "Leave table", "Quit")
}

func promptAmount(label string) int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.WithDefaultText(label).Show()
		amount, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && amount > 0 {
			return amount
		}
		pterm.Warning.Println("Enter a positive whole number")
	}
}

// waitForFrame blocks until a state frame arrives or the grace period runs
// out, then drains any extras so one redraw covers them all.
func waitForFrame(dirty chan struct{}, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-dirty:
	case <-timer.C:
	}
	for {
		select {
		case <-dirty:
		default:
			return
		}
	}
}

func maybeLogin(api *lobby.Client) string {
	ok, _ := pterm.DefaultInteractiveConfirm.WithDefaultText("Log in with a platform account?").Show()
	if !ok {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for attempts := 0; attempts < 3; attempts++ {
		username, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Username").Show()
		password, _ := pterm.DefaultInteractiveTextInput.WithMask("*").WithDefaultText("Password").Show()

		session, err := api.Login(ctx, strings.TrimSpace(username), password)
		if err != nil {
			pterm.Error.Printfln("Login failed: %v", err)
			continue
		}
		if stack, err := api.Stack(ctx, session.AccessToken); err == nil {
			pterm.Info.Printfln("Logged in as %s. Banked chips: $%d", session.User.Username, stack)
		}
		return session.AccessToken
	}
	pterm.Warning.Println("Continuing as a guest")
	return ""
}

func chooseTable(api *lobby.Client) *lobby.Table {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	const createOption = "Create a new table"

	tables, err := api.ListTables(ctx)
	if err != nil {
		pterm.Warning.Printfln("Could not list tables: %v", err)
	}

	byLabel := make(map[string]lobby.Table, len(tables))
	options := make([]string, 0, len(tables)+1)
	for _, t := range tables {
		label := fmt.Sprintf("%s  [%s]  blinds $%d/$%d", t.Name, t.TableID, t.SmallBlind, t.BigBlind)
		byLabel[label] = t
		options = append(options, label)
	}
	options = append(options, createOption)

	choice, _ := pterm.DefaultInteractiveSelect.
		WithDefaultText("Pick a table").
		WithOptions(options).
		Show()

	if t, ok := byLabel[choice]; ok {
		return &t
	}

	name, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Table name").Show()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "PokerLite Table"
	}
	created, err := api.CreateTable(ctx, lobby.CreateTableParams{Name: name})
	if err != nil {
		pterm.Error.Printfln("Could not create table: %v", err)
		os.Exit(1)
	}
	pterm.Success.Printfln("Created table %s", created.TableID)
	return created
}

// identityStore wires the identity resolver to Redis when REDIS_ADDR is set,
// so seats survive a client restart. Otherwise identity is session-scoped.
func identityStore(logger *logrus.Logger) identity.Store {
	if os.Getenv("REDIS_ADDR") == "" {
		return identity.NewMemoryStore()
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, falling back to in-memory identity: %v", err)
		return identity.NewMemoryStore()
	}
	return identity.NewRedisStore(cache.Rdb)
}

// newLogger sends structured logs to LOG_FILE when set. The terminal belongs
// to the interactive UI, so logs are discarded otherwise.
func newLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			logger.SetOutput(f)
			return logger
		}
	}
	logger.SetOutput(io.Discard)
	return logger
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}
