package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"notify-shell/src/config"
	"notify-shell/src/eventloop"
	"notify-shell/src/fyneui"
	"notify-shell/src/host"
	"notify-shell/src/notification"
	"notify-shell/src/runtimeinit"
	"notify-shell/src/singleinstance"
	"notify-shell/src/toast"
	"notify-shell/src/tray"
)

const appTitle = "Notify Shell"

var errAlreadyRunning = errors.New("another resident is already running")

type mainOptions struct {
	theme    string
	envPath  string
	verbose  bool
	noHotkey bool
}

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	args = normalizeLegacyArgs(args)
	if len(args) == 0 {
		args = []string{"notify-shell"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "notify-shell",
		Short:         "Resident notification host",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(*opts)
		},
	}
	cmd.Flags().StringVar(&opts.theme, "theme", "", "Theme mode: Light, Dark or Auto (overrides THEME)")
	cmd.Flags().StringVar(&opts.envPath, "env", "", "Path to a .env file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	cmd.Flags().BoolVar(&opts.noHotkey, "no-hotkey", false, "Do not register the dismiss-all hotkey")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"theme", "env", "verbose", "no-hotkey"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}
	return normalized
}

// preflight checks that the resident port is free before any UI exists.
func preflight(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", port)
		return fmt.Errorf("%w on port %d", errAlreadyRunning, port)
	}
	_ = listener.Close()
	log.Printf("Pre-flight: port %d free", port)
	return nil
}

// services is everything the resident wires around one fyne app.
type services struct {
	app        fyne.App
	dispatcher *fyneui.Dispatcher
	host       *host.Host
	notifier   *toast.Notifier
	loop       *eventloop.Loop
}

func wire(a fyne.App, rt *runtimeinit.Runtime) *services {
	cfg := rt.Config
	d := &fyneui.Dispatcher{}
	h := host.New(d, fyneui.New(a), host.Options{Palette: rt.Palette, CompleteGrace: cfg.CompleteGrace})
	n := toast.New(h, toastOptions(cfg, fyneui.SendNative(a)))
	return &services{app: a, dispatcher: d, host: h, notifier: n, loop: eventloop.New(cfg, h, n)}
}

func toastOptions(cfg *config.Config, native toast.NativeSender) toast.Options {
	return toast.Options{
		Rate:            cfg.ToastRate,
		Burst:           cfg.ToastBurst,
		DefaultDuration: cfg.ToastDuration,
		Native:          native,
	}
}

func runResident(opts mainOptions) error {
	enableDPIAwareness()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{ThemeOverride: opts.theme, EnvPathOverride: opts.envPath},
		Verbose:     opts.verbose,
	})
	if err != nil {
		return err
	}
	defer rt.Logs.Close()

	start := singleinstance.Ports().Start
	if err := preflight(start); err != nil {
		notification.ShowBlockingError(appTitle, fmt.Sprintf("%s is already running on port %d.", appTitle, start))
		return err
	}

	s := wire(fyneui.NewApp(rt.Config.AppID), rt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.loop.Start(ctx); err != nil {
		notification.ShowBlockingError(appTitle, fmt.Sprintf("Cannot listen for clients: %v", err))
		return err
	}

	t := tray.Install(s.app, appTitle, tray.Actions{
		CloseAll: s.loop.DismissAll,
		Describe: func() { go announceOpen(ctx, s) },
		Quit:     cancel,
	})
	t.SetStatus(fmt.Sprintf("Listening on port %d", s.loop.Port()))
	s.loop.OnDismiss(func(closed int) {
		fyne.Do(func() { t.SetStatus(fmt.Sprintf("Dismissed %d surface(s)", closed)) })
	})

	if !opts.noHotkey {
		if err := s.loop.StartHotkey(rt.Config.DismissHotkey); err != nil {
			log.Printf("Hotkey %q unavailable: %v", rt.Config.DismissHotkey, err)
		} else {
			log.Printf("Hotkey: %s dismisses all surfaces", rt.Config.DismissHotkey)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.loop.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 3*time.Second)
		defer done()
		if err := s.host.Shutdown(shutdownCtx); err != nil {
			log.Printf("Resident: %v", err)
		}
		fyne.Do(s.app.Quit)
		return nil
	})

	log.Printf("%s resident started", appTitle)
	s.app.Run()

	s.dispatcher.Stop()
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("%s resident stopped", appTitle)
	return nil
}

// announceOpen sends a native notification summarising open surfaces.
func announceOpen(ctx context.Context, s *services) {
	infos, err := s.host.Describe(ctx)
	if err != nil {
		log.Printf("Describe: %v", err)
		return
	}
	titles := make([]string, 0, len(infos))
	for _, info := range infos {
		titles = append(titles, fmt.Sprintf("%s (%s)", info.Title, info.Kind))
	}
	body := "Nothing open"
	if len(titles) > 0 {
		body = strings.Join(titles, "\n")
	}
	s.app.SendNotification(fyne.NewNotification(fmt.Sprintf("%d open surface(s)", len(infos)), body))
}
