// cmd/pokerlite/style.go
package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/pokerlite/tableclient/internal/protocol"
	"github.com/pokerlite/tableclient/internal/table"
	"github.com/pokerlite/tableclient/internal/table/anim"
)

var suitSymbols = map[byte]string{'s': "♠", 'h': "♥", 'd': "♦", 'c': "♣"}

// cardString renders one card like "A♥", red suits in red.
func cardString(card string) string {
	if len(card) < 2 {
		return card
	}
	rank := card[:len(card)-1]
	suit := card[len(card)-1]
	symbol, ok := suitSymbols[suit]
	if !ok {
		return card
	}
	text := rank + symbol
	if suit == 'h' || suit == 'd' {
		return pterm.LightRed(text)
	}
	return text
}

const cardBack = "🂠 "

func renderTable(ctrl *table.Controller) {
	snap := ctrl.Snapshot()
	if snap == nil {
		pterm.Info.Println("Waiting for table state...")
		return
	}
	pres := ctrl.Presentation()

	var opponents []pterm.Panel
	for _, p := range snap.Players {
		if p.PID == ctrl.MyPID() {
			continue
		}
		opponents = append(opponents, pterm.Panel{Data: playerBox(snap, pres, p, false)})
	}

	middle := []pterm.Panel{{Data: boardBox(snap, pres)}}
	if panel := showdownBox(ctrl, snap, pres); panel != "" {
		middle = append(middle, pterm.Panel{Data: panel})
	} else if pres.ActionFlash != nil {
		middle = append(middle, pterm.Panel{Data: actionBox(snap, pres.ActionFlash)})
	}

	var bottom []pterm.Panel
	if me := snap.Me(ctrl.MyPID()); me != nil {
		bottom = append(bottom, pterm.Panel{Data: playerBox(snap, pres, *me, true)})
	} else {
		bottom = append(bottom, pterm.Panel{Data: roleBox(snap)})
	}
	bottom = append(bottom, pterm.Panel{Data: logBox(ctrl)})

	rows := [][]pterm.Panel{middle, bottom}
	if len(opponents) > 0 {
		rows = [][]pterm.Panel{opponents, middle, bottom}
	}
	pterm.DefaultPanel.WithPanels(rows).Render()
}

func playerBox(snap *protocol.TableState, pres anim.State, p protocol.Player, mine bool) string {
	hpadding := 2
	if mine {
		hpadding = 6
	}
	pbox := pterm.DefaultBox.WithHorizontalPadding(hpadding).WithTopPadding(1).WithBottomPadding(1)

	title := p.Name
	switch {
	case p.PID == snap.SBPID:
		title += " (SB)"
	case p.PID == snap.BBPID:
		title += " (BB)"
	}
	if p.Seat == snap.DealerSeat && snap.HandInProgress {
		title += " (D)"
	}

	var lines []string
	switch {
	case containsString(pres.FoldFlashes, p.PID):
		lines = append(lines, pterm.BgRed.Sprint(" FOLDS "))
	case containsString(pres.WinFlashes, p.PID):
		lines = append(lines, pterm.BgYellow.Sprint(" WINNER "))
	case p.Folded:
		lines = append(lines, pterm.LightRed("Folded"))
	case !p.Connected:
		lines = append(lines, pterm.Gray("Away"))
	case p.PID == snap.CurrentTurnPID:
		lines = append(lines, pterm.LightYellow("To act"))
	default:
		lines = append(lines, pterm.LightGreen("Active"))
	}

	lines = append(lines, fmt.Sprintf("Stack: $%d", p.Stack))
	if bet := snap.PlayerBets[p.PID]; bet > 0 {
		lines = append(lines, fmt.Sprintf("Bet: $%d", bet))
	}

	if cards := holeCardsFor(snap, pres, p, mine); cards != "" {
		lines = append(lines, cards)
	}

	return pbox.WithTitle(title).WithTitleTopLeft().Sprint(strings.Join(lines, "\n"))
}

// holeCardsFor shows the viewer's own cards always, and other participants'
// cards only once the reveal stage of a showdown has been reached.
func holeCardsFor(snap *protocol.TableState, pres anim.State, p protocol.Player, mine bool) string {
	if mine && len(snap.HoleCards) > 0 {
		return cardRow(snap.HoleCards, nil)
	}
	if snap.Showdown == nil {
		return ""
	}
	if pres.Phase != anim.PhaseRevealing && pres.Phase != anim.PhaseShowModal && pres.Phase != anim.PhaseRunoutShown {
		if sp, ok := snap.Showdown.Players[p.PID]; ok && len(sp.HoleCards) > 0 {
			return cardBack + cardBack
		}
		return ""
	}
	sp, ok := snap.Showdown.Players[p.PID]
	if !ok {
		return ""
	}
	row := cardRow(sp.HoleCards, sp.Highlight)
	if sp.HandName != "" {
		row += "\n" + pterm.Gray(sp.HandName)
	}
	return row
}

// cardRow renders cards side by side, highlighting any in the given set.
func cardRow(cards, highlight []string) string {
	marked := make(map[string]bool, len(highlight))
	for _, c := range highlight {
		marked[c] = true
	}
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		if marked[c] {
			parts = append(parts, pterm.BgYellow.Sprint(cardString(c)))
		} else {
			parts = append(parts, cardString(c))
		}
	}
	return strings.Join(parts, " ")
}

func boardBox(snap *protocol.TableState, pres anim.State) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)

	revealed := make(map[int]bool, len(pres.RevealedBoard))
	for _, i := range pres.RevealedBoard {
		revealed[i] = true
	}
	var highlight map[string]bool
	if snap.Showdown != nil && (pres.Phase == anim.PhaseRevealing || pres.Phase == anim.PhaseShowModal) {
		highlight = make(map[string]bool)
		for _, sp := range snap.Showdown.Players {
			for _, c := range sp.Highlight {
				highlight[c] = true
			}
		}
	}

	parts := make([]string, 0, len(snap.Board))
	for i, c := range snap.Board {
		switch {
		case !revealed[i]:
			parts = append(parts, cardBack)
		case highlight[c]:
			parts = append(parts, pterm.BgYellow.Sprint(cardString(c)))
		default:
			parts = append(parts, cardString(c))
		}
	}
	board := strings.Join(parts, "  ")
	if board == "" {
		board = pterm.Gray("(no community cards)")
	}

	lines := []string{board, fmt.Sprintf("Pot: $%d", snap.Pot)}
	if snap.CurrentBet > 0 {
		lines = append(lines, fmt.Sprintf("Current bet: $%d", snap.CurrentBet))
	}

	title := snap.Street
	if title == "" || !snap.HandInProgress {
		title = "table"
	}
	return pbox.WithTitle(pterm.LightCyan("|" + strings.ToUpper(title) + "|")).WithTitleTopCenter().Sprint(strings.Join(lines, "\n"))
}

func showdownBox(ctrl *table.Controller, snap *protocol.TableState, pres anim.State) string {
	if snap.Showdown == nil {
		return ""
	}
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)

	switch pres.Phase {
	case anim.PhaseFlipping:
		return pbox.WithTitle(pterm.LightGreen("|SHOWDOWN|")).WithTitleTopCenter().Sprint("Flipping cards...")
	case anim.PhaseRunoutShown:
		return pbox.WithTitle(pterm.LightGreen("|SHOWDOWN|")).WithTitleTopCenter().Sprint("All in. Running out the board...")
	case anim.PhaseShowModal:
		var lines []string
		names := make([]string, 0, len(snap.Showdown.WinnerPIDs))
		for _, pid := range snap.Showdown.WinnerPIDs {
			names = append(names, nameFor(snap, pid))
		}
		switch {
		case snap.Showdown.FoldWin && len(names) == 1:
			lines = append(lines, pterm.Sprintf("%s takes down the pot", pterm.LightCyan(names[0])))
		case len(names) > 0:
			lines = append(lines, pterm.Sprintf("%s wins with %s", pterm.LightCyan(strings.Join(names, ", ")), snap.Showdown.WinningHandName))
		}
		if snap.Showdown.PotWon > 0 {
			lines = append(lines, fmt.Sprintf("Pot won: $%d", snap.Showdown.PotWon))
		}
		for _, sp := range snap.Showdown.SidePots {
			winners := make([]string, 0, len(sp.Winners))
			for _, pid := range sp.Winners {
				winners = append(winners, nameFor(snap, pid))
			}
			lines = append(lines, fmt.Sprintf("%s pot $%d: %s", sp.Type, sp.Amount, strings.Join(winners, ", ")))
		}
		if outcome := ctrl.HandOutcome(); outcome != "" {
			lines = append(lines, pterm.Gray(outcome))
		}
		return pbox.WithTitle(pterm.LightGreen("|SHOWDOWN|")).WithTitleTopCenter().Sprint(strings.Join(lines, "\n"))
	}
	return ""
}

func actionBox(snap *protocol.TableState, act *protocol.LastAction) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	name := nameFor(snap, act.PID)
	var text string
	switch act.Action {
	case protocol.ActionRaise:
		text = pterm.Sprintf("%s raised to %d", name, act.Amount)
	case protocol.ActionCall:
		text = pterm.Sprintf("%s called %d", name, act.Amount)
	case protocol.ActionAllIn:
		text = pterm.Sprintf("%s is all in for %d", name, act.Amount)
	default:
		text = pterm.Sprintf("%s %ss", name, act.Action)
	}
	return pbox.WithTitle(pterm.LightYellow("|LAST ACTION|")).WithTitleTopCenter().Sprint(text)
}

// roleBox describes the viewer's own position when they hold no seat.
func roleBox(snap *protocol.TableState) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(6).WithTopPadding(1).WithBottomPadding(1)
	var lines []string
	switch snap.MyRole {
	case protocol.RoleWaitlist:
		lines = append(lines, pterm.LightYellow("On the waitlist"))
		lines = append(lines, fmt.Sprintf("Position: %d of %d", snap.WaitlistPosition, len(snap.Waitlist)))
	default:
		lines = append(lines, pterm.Gray("Spectating"))
		if len(snap.Waitlist) > 0 {
			lines = append(lines, fmt.Sprintf("Waitlist: %d", len(snap.Waitlist)))
		}
	}
	if len(snap.Spectators) > 0 {
		lines = append(lines, fmt.Sprintf("Spectators: %d", len(snap.Spectators)))
	}
	return pbox.WithTitle("You").WithTitleTopLeft().Sprint(strings.Join(lines, "\n"))
}

func logBox(ctrl *table.Controller) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(2).WithTopPadding(1).WithBottomPadding(1)
	entries := ctrl.Logs()
	const tail = 6
	if len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, pterm.Gray(e.Time.Format("15:04:05"))+" "+e.Message)
	}
	if len(lines) == 0 {
		lines = append(lines, pterm.Gray("(no activity yet)"))
	}
	return pbox.WithTitle("Activity").WithTitleTopLeft().Sprint(strings.Join(lines, "\n"))
}

func nameFor(snap *protocol.TableState, pid string) string {
	for _, p := range snap.Players {
		if p.PID == pid {
			return p.Name
		}
	}
	if len(pid) > 8 {
		return pid[:8]
	}
	return pid
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
