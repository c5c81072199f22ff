package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scratch-race-backend/internal/commentary"
	"github.com/DoyleJ11/scratch-race-backend/internal/engine"
	"github.com/DoyleJ11/scratch-race-backend/internal/hub"
	"github.com/DoyleJ11/scratch-race-backend/internal/lobby"
	"github.com/DoyleJ11/scratch-race-backend/internal/logging"
	"github.com/DoyleJ11/scratch-race-backend/internal/session"
	"github.com/DoyleJ11/scratch-race-backend/internal/store"
	"github.com/DoyleJ11/scratch-race-backend/pkg/types"
)

const (
	actionRoll = "Roll the dice"
	actionQuit = "Quit"

	// A race with every survivor stuck behind penalties still ends well
	// before this.
	maxRolls = 10000
)

func main() {
	players := flag.Int("players", 3, "number of players sharing this terminal (2-8)")
	chips := flag.Int64("chips", engine.DefaultStartingChips, "starting chips per player")
	auto := flag.Bool("auto", false, "roll automatically instead of prompting")
	seed := flag.Int64("seed", time.Now().UnixNano(), "dice seed")
	flag.Parse()

	if err := run(*players, *chips, *auto, *seed); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(players int, chips int64, auto bool, seed int64) error {
	ctx := context.Background()

	log, err := logging.New("warn", "console")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	kv := store.NewMemory()
	sessions := store.NewSessions(kv)
	h := hub.NewHub(ctx, hub.DepsFactory(lobby.Deps{
		Repo:        sessions,
		Dice:        engine.NewRandDice(seed),
		Commentator: commentary.NewCanned(seed),
		Logger:      log,
	}))
	svc := session.NewService(h, sessions, nil, log, session.Options{})
	defer func() { _ = svc.Shutdown(ctx) }()

	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("S", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("cratch ", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("R", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("ace", pterm.FgDarkGray.ToStyle()),
	).Render()

	names := make([]string, players)
	for i := range names {
		names[i] = fmt.Sprintf("Player %d", i+1)
		if auto {
			continue
		}
		name, _ := pterm.DefaultInteractiveTextInput.WithDefaultText(fmt.Sprintf("Name for player %d", i+1)).WithDefaultValue(names[i]).Show()
		if name != "" {
			names[i] = name
		}
	}

	spinner, _ := pterm.DefaultSpinner.Start("Shuffling and dealing the cards ...")
	id, err := svc.StartLocal(ctx, names, chips)
	if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	log.Debug("local game", zap.String("session", id))

	snap, err := svc.GetSessionState(ctx, id)
	if err != nil {
		return err
	}
	printState(snap)

	for rolls := 0; snap.Phase != engine.PhaseFinished; rolls++ {
		if rolls >= maxRolls {
			return fmt.Errorf("race did not finish after %d rolls", maxRolls)
		}
		if !auto && !confirm(snap) {
			pterm.Info.Println("Game abandoned.")
			return nil
		}

		var panel pterm.Panel
		current := snap.CurrentPlayer
		switch snap.Phase {
		case engine.PhaseScratching:
			res, err := svc.RollForScratch(ctx, id, current)
			if err != nil {
				return err
			}
			if snap, err = svc.GetSessionState(ctx, id); err != nil {
				return err
			}
			panel = getScratchPanel(snap, res)
		case engine.PhaseRacing:
			res, err := svc.RollForRace(ctx, id, current)
			if err != nil {
				return err
			}
			if snap, err = svc.GetSessionState(ctx, id); err != nil {
				return err
			}
			panel = getRacePanel(snap, res)
			if res.Winner != nil {
				printState(snap, panel, getWinnerPanel(snap, res))
				continue
			}
		default:
			return fmt.Errorf("unexpected phase %s", snap.Phase)
		}
		if auto {
			// Keep the output readable: only the final board is drawn in full.
			pterm.Println(panel.Data)
			continue
		}
		printState(snap, panel)
	}
	return nil
}

func confirm(snap *types.Snapshot) bool {
	prompt := fmt.Sprintf("%s, your roll", nameOf(snap, snap.CurrentPlayer))
	choice, _ := pterm.DefaultInteractiveSelect.WithDefaultText(prompt).WithOptions([]string{actionRoll, actionQuit}).Show()
	return choice != actionQuit
}
