// mbcapture captures one binding from the terminal: it opens a capture
// session for an action, listens to the keyboard and mouse (and SDL
// devices with --sdl), and writes the chosen input to the actionmaps file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/pflag"

	"github.com/ankurkotwal/metabind/mbind"
	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
)

const redrawInterval = 200 * time.Millisecond

type options struct {
	configFile     string
	target         common.ActionRef
	dryRun         bool
	multiTap       int
	activationMode string
}

type app struct {
	screen   tcell.Screen
	services *mbind.Services
	opts     options

	session   string
	snap      capture.Snapshot
	prevMouse tcell.ButtonMask
	result    string
}

func main() {
	flags, opts := parseCliArgs(os.Args[1:])
	cfg, err := common.LoadConfig(opts.configFile, flags)
	if err != nil {
		log.Fatal(err)
	}
	logger := common.NewLog()
	services, err := mbind.NewServices(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go services.Run(ctx)

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatal(err)
	}
	if err := screen.Init(); err != nil {
		log.Fatal(err)
	}
	screen.EnableMouse()
	// The logger keeps entries for the view; printing would tear the screen
	log.SetOutput(io.Discard)

	a := &app{screen: screen, services: services, opts: opts}
	a.run(ctx)

	screen.Fini()
	log.SetOutput(os.Stderr)
	fmt.Println(a.result)
}

func parseCliArgs(args []string) (*pflag.FlagSet, options) {
	var opts options
	flags := pflag.NewFlagSet("mbcapture", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Printf("Usage: %s --map <action map> --action <action> [flags]\n\n", filepath.Base(os.Args[0]))
		flags.PrintDefaults()
	}
	flags.StringVarP(&opts.configFile, "config", "c", common.DefaultConfigFile, "Configuration file.")
	flags.StringVarP(&opts.target.ActionMap, "map", "m", "", "Action map, e.g. spaceship_weapons.")
	flags.StringVarP(&opts.target.Action, "action", "a", "", "Action, e.g. v_attack1_group1.")
	flags.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Show the result without writing it.")
	flags.IntVar(&opts.multiTap, "multi-tap", 0, "Multi tap count to store with the binding.")
	flags.StringVar(&opts.activationMode, "activation-mode", "", "Activation mode to store with the binding.")
	flags.Bool("sdl", false, "Listen to joysticks and gamepads through SDL3.")
	flags.BoolP("debug", "d", false, "Debug output.")
	_ = flags.Parse(args)

	if opts.target.ActionMap == "" || opts.target.Action == "" {
		flags.Usage()
		os.Exit(1)
	}
	return flags, opts
}

func (a *app) run(ctx context.Context) {
	unobserve := a.services.Controller.Observe(func(s capture.Snapshot) {
		_ = a.screen.PostEvent(tcell.NewEventInterrupt(s))
	})
	defer unobserve()

	a.snap = a.services.Controller.Start(a.opts.target, capture.Expectation{})
	a.session = a.snap.SessionID

	go func() {
		ticker := time.NewTicker(redrawInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = a.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
				return
			case <-ticker.C:
				_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	a.draw()
	for a.result == "" {
		a.handle(a.screen.PollEvent())
	}
}

func (a *app) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case nil:
		a.finish("Screen closed.")
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventInterrupt:
		switch data := ev.Data().(type) {
		case capture.Snapshot:
			if data.SessionID != a.session {
				return
			}
			a.snap = data
			if data.State == capture.Closed {
				a.finish("Capture closed without a binding.")
				return
			}
		case error:
			a.services.Controller.Cancel()
			a.finish("Interrupted.")
			return
		}
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape:
			a.services.Controller.Cancel()
			a.finish("Cancelled.")
			return
		case tcell.KeyEnter:
			a.confirm()
			return
		case tcell.KeyTab:
			a.cycle()
		default:
			if raw, ok := keyEvent(ev); ok {
				a.services.UI.PushFor(a.session, raw)
			}
		}
	case *tcell.EventMouse:
		raw, ok := mouseEvent(ev, a.prevMouse)
		a.prevMouse = ev.Buttons()
		if ok {
			a.services.UI.PushFor(a.session, raw)
		}
	}
	a.draw()
}

// cycle selects the candidate after the current one
func (a *app) cycle() {
	detected := a.snap.Detected
	if len(detected) < 2 {
		return
	}
	next := 0
	for i, c := range detected {
		if c.Input == a.snap.Selected {
			next = (i + 1) % len(detected)
		}
	}
	if snap, err := a.services.Controller.Select(a.session, detected[next].Input); err == nil {
		a.snap = snap
	}
}

func (a *app) confirm() {
	conf, err := a.services.Controller.Confirm(a.session)
	if errors.Is(err, capture.ErrNothingDetected) {
		// Keep listening
		return
	}
	if err != nil {
		a.finish(fmt.Sprintf("Capture failed: %s", err))
		return
	}
	input := conf.Selected.Input
	conflicts := a.services.Conflicts.FindConflicts(input, conf.Target)
	msg := fmt.Sprintf("%s -> %s (%s)", conf.Target, input, conf.Selected.DisplayName)
	for _, c := range conflicts {
		msg += fmt.Sprintf("\n  also bound to %s / %s", c.ActionMapLabel, c.ActionLabel)
	}
	if a.opts.dryRun {
		a.finish(msg + "\nDry run, nothing written.")
		return
	}
	if err := a.services.Commit(conf.Target, input, a.opts.multiTap, a.opts.activationMode); err != nil {
		a.finish(fmt.Sprintf("%s\nNot saved: %s", msg, err))
		return
	}
	if a.services.Config.ActionMapsFile == "" {
		a.finish(msg + "\nNo ActionMapsFile configured, nothing written.")
		return
	}
	a.finish(msg + "\nSaved to " + a.services.Config.ActionMapsFile)
}

func (a *app) finish(result string) {
	a.result = result
}

func (a *app) draw() {
	if a.result != "" {
		return
	}
	mapLabel, actionLabel := a.services.Profile.Catalog().Labels(a.opts.target)
	v := view{
		MapLabel:    mapLabel,
		ActionLabel: actionLabel,
		Snap:        a.snap,
		Now:         time.Now(),
		Log:         a.services.Log.Snapshot(),
	}
	if a.snap.Selected != "" {
		v.Conflicts = a.services.Conflicts.FindConflicts(a.snap.Selected, a.opts.target)
	}
	v.draw(a.screen)
}
