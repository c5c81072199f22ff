package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/session"
	"github.com/DoyleJ11/scratch-race-backend/pkg/types"
)

func getScratchPanel(snap *types.Snapshot, res engine.ScratchResult) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	var info string
	if res.ScratchedHorse == nil {
		info = pterm.Sprintfln("Rolled %d + %d = %d, already scratched. Roll again.", res.Die1, res.Die2, res.Sum)
	} else {
		info = pterm.Sprintfln("Rolled %d + %d: horse %d is scratched (slot %d)", res.Die1, res.Die2, res.Sum, res.Slot)
		for _, c := range res.Charged {
			info += pterm.Sprintfln("%s pays %d for %d card(s)", nameOf(snap, c.PlayerID), c.Amount, c.Cards)
		}
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|SCRATCH|")).WithTitleTopCenter().Sprint(info)}
}

func getRacePanel(snap *types.Snapshot, res session.RaceOutcome) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	info := pterm.Sprintfln("Rolled %d + %d = %d", res.Die1, res.Die2, res.Sum)
	switch {
	case res.Penalty != nil:
		info += pterm.Sprintfln("Horse %d is scratched: %s pays %d to the pot", res.Sum, nameOf(snap, res.Penalty.PlayerID), res.Penalty.Amount)
	case res.MovedHorse != nil:
		info += pterm.Sprintfln("Horse %d moves to %d", *res.MovedHorse, res.Position)
	}
	if res.Commentary != "" {
		info += pterm.LightMagenta(res.Commentary)
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|RACE|")).WithTitleTopCenter().Sprint(info)}
}

func getWinnerPanel(snap *types.Snapshot, res session.RaceOutcome) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	info := pterm.Sprintfln("Horse %s wins! Pot: %d", pterm.LightCyan(strconv.Itoa(*res.Winner)), snap.Pot)
	for _, f := range res.Forfeits {
		info += pterm.Sprintfln("%s forfeits %d for %d losing card(s)", nameOf(snap, f.PlayerID), f.Amount, f.Cards)
	}
	if len(res.Payouts) == 0 {
		info += pterm.Sprintln("Nobody held the winner. The pot stays on the table.")
	}
	for _, p := range res.Payouts {
		info += pterm.Sprintfln("%s collects %d with %d winning card(s)", pterm.LightCyan(nameOf(snap, p.PlayerID)), p.Amount, p.WinningCards)
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightGreen("|WINNER|")).WithTitleTopCenter().Sprint(info)}
}

func printState(snap *types.Snapshot, additionalPanel ...pterm.Panel) {
	var players []pterm.Panel
	for _, p := range snap.Players {
		players = append(players, pterm.Panel{Data: printPlayerInfo(p, p.ID == snap.CurrentPlayer)})
	}
	board := pterm.Panel{Data: printBoardInfo(snap)}

	pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		players,
		{board},
		additionalPanel,
	}).Render()
}

func printPlayerInfo(p types.Player, active bool) string {
	hpadding := 2
	title := p.Name
	if active {
		hpadding = 4
		title = pterm.LightGreen(p.Name + " (to roll)")
	}
	chips := pterm.LightGreen(strconv.FormatInt(p.Chips, 10))
	if p.Chips < 0 {
		chips = pterm.LightRed(strconv.FormatInt(p.Chips, 10))
	}
	pbox := pterm.DefaultBox.WithHorizontalPadding(hpadding).WithTitle(title).WithTitleTopLeft()
	return pbox.Sprintf("Chips: %s\nCards: %s", chips, cardList(p.Cards))
}

func printBoardInfo(snap *types.Snapshot) string {
	data := pterm.TableData{{"Horse", "Track", "Pos", "Status"}}
	for _, h := range snap.Horses {
		status := ""
		switch {
		case h.Scratched:
			status = pterm.LightRed(fmt.Sprintf("scratched #%d (pay %d)", h.Slot, h.Slot))
		case snap.Winner != nil && *snap.Winner == h.Number:
			status = pterm.LightGreen("WINNER")
		}
		data = append(data, []string{
			strconv.Itoa(h.Number),
			lane(h.Position, h.Length),
			fmt.Sprintf("%d/%d", h.Position, h.Length),
			status,
		})
	}
	table, _ := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	header := pterm.Sprintfln("Phase: %s   Pot: %d   Scratched: %d/%d", snap.Phase, snap.Pot, snap.ScratchPhase, engine.ScratchRounds)
	return header + table
}

func lane(pos, length int) string {
	if pos > length {
		pos = length
	}
	return pterm.FgGreen.Sprint(strings.Repeat("█", pos)) + pterm.FgDarkGray.Sprint(strings.Repeat("░", length-pos))
}

func cardList(cards []int) string {
	if len(cards) == 0 {
		return "-"
	}
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, " ")
}

func nameOf(snap *types.Snapshot, id string) string {
	for _, p := range snap.Players {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}
