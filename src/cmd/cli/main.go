package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"github.com/spf13/cobra"

	"notify-shell/src/config"
	"notify-shell/src/dialog"
	"notify-shell/src/eventloop"
	"notify-shell/src/fyneui"
	"notify-shell/src/host"
	"notify-shell/src/logutil"
	"notify-shell/src/messages"
	"notify-shell/src/output"
	"notify-shell/src/progress"
	"notify-shell/src/runtimeinit"
	"notify-shell/src/singleinstance"
	"notify-shell/src/surface"
	"notify-shell/src/theme"
	"notify-shell/src/toast"
	"notify-shell/src/uithread"
)

// errReported means the failure was already written to the output target.
var errReported = errors.New("reported")

type cliOptions struct {
	verbose    bool
	standalone bool
	jsonOutput bool
	copy       bool
	wait       bool
	envPath    string
	theme      string
}

// standaloneFunc runs a request in-process when no resident answers.
type standaloneFunc func(ctx context.Context, rt *runtimeinit.Runtime, req messages.Request, updates <-chan messages.Update) (any, error)

type cliApp struct {
	opts       cliOptions
	client     singleinstance.Client
	standalone standaloneFunc
	bootstrap  func(runtimeinit.Options) (*runtimeinit.Runtime, error)
	stdin      io.Reader
	rt         *runtimeinit.Runtime
}

func newCLIApp() *cliApp {
	return &cliApp{
		client:     singleinstance.NewClient(),
		standalone: runStandalone,
		bootstrap:  runtimeinit.Bootstrap,
		stdin:      os.Stdin,
	}
}

func main() {
	if err := runWithArgs(newCLIApp(), os.Args); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func runWithArgs(app *cliApp, args []string) error {
	if len(args) == 0 {
		args = []string{"notify"}
	}
	cmd := newRootCmd(app)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(app *cliApp) *cobra.Command {
	opts := &app.opts
	cmd := &cobra.Command{
		Use:           "notify",
		Short:         "Show notifications, dialogs and progress windows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt, err := app.bootstrap(runtimeinit.Options{
				LoadOptions: config.LoadOptions{ThemeOverride: opts.theme, EnvPathOverride: opts.envPath},
				Verbose:     opts.verbose,
			})
			if err != nil {
				return err
			}
			app.rt = rt
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.rt != nil && app.rt.Logs != nil {
				_ = app.rt.Logs.Close()
			}
		},
	}
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	pf.BoolVar(&opts.standalone, "standalone", false, "Do not delegate to a running resident")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Print results as indented JSON")
	pf.BoolVar(&opts.copy, "copy", false, "Also copy the result to the clipboard")
	pf.StringVar(&opts.envPath, "env", "", "Path to a .env file")
	pf.StringVar(&opts.theme, "theme", "", "Theme mode for standalone surfaces")

	cmd.AddCommand(
		newToastCmd(app),
		newQuickCmd(app),
		newCommonCmd(app),
		newDialogCmd(app, messages.OpDialog),
		newDialogCmd(app, messages.OpConfirm),
		newProgressCmd(app),
		newSimpleCmd(app, messages.OpList, "List open surfaces"),
		newSimpleCmd(app, messages.OpCloseAll, "Close every open surface"),
		newThemeCmd(app),
		newSelfTestCmd(app),
	)
	return cmd
}

func newToastCmd(app *cliApp) *cobra.Command {
	req := &toast.Request{}
	var kind, position string
	cmd := &cobra.Command{
		Use:   "toast [message]",
		Short: "Show a toast notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				req.Message = strings.Join(args, " ")
			}
			t, err := theme.ParseType(kind)
			if err != nil {
				return err
			}
			req.Type = t
			req.Position = surface.Position(position)
			return app.dispatch(cmd, messages.Request{Op: messages.OpToast, Wait: app.opts.wait, Toast: req}, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "Notification", "Toast title")
	f.StringVar(&req.Message, "message", "", "Toast message")
	f.StringVar(&kind, "type", "info", "Info, Success, Warning, Error or Question")
	f.DurationVar(&req.Duration, "duration", 0, "Auto-dismiss after this long (0 uses the configured default)")
	f.BoolVar(&req.Sticky, "sticky", false, "Stay until closed")
	f.StringVar(&position, "position", "", "Screen anchor, e.g. TopRight")
	f.BoolVar(&req.Native, "native", false, "Use the operating system notification centre")
	f.StringVar(&req.Accent, "accent", "", "Accent color as #rrggbb")
	f.BoolVar(&app.opts.wait, "wait", false, "Wait until the toast closes and print its result")
	return cmd
}

func newQuickCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quick <type> <message>",
		Short: "Show a toast titled by its type",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := theme.ParseType(args[0])
			if err != nil {
				return err
			}
			q := &messages.QuickArgs{Type: t, Message: strings.Join(args[1:], " ")}
			return app.dispatch(cmd, messages.Request{Op: messages.OpQuick, Wait: app.opts.wait, Quick: q}, nil)
		},
	}
	cmd.Flags().BoolVar(&app.opts.wait, "wait", false, "Wait until the toast closes")
	return cmd
}

func newCommonCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "common <preset> [message]",
		Short: "Show a preset toast such as SaveComplete or ConnectionLost",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &messages.CommonArgs{Name: args[0], Custom: strings.Join(args[1:], " ")}
			return app.dispatch(cmd, messages.Request{Op: messages.OpCommon, Wait: app.opts.wait, Common: c}, nil)
		},
	}
	cmd.Flags().BoolVar(&app.opts.wait, "wait", false, "Wait until the toast closes")
	cmd.Long = "Presets: " + presetNames()
	return cmd
}

func presetNames() string {
	names := make([]string, 0, len(toast.Presets()))
	for _, p := range toast.Presets() {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func newDialogCmd(app *cliApp, op string) *cobra.Command {
	req := &dialog.Request{}
	var kind, position, mode string
	var buttons []string
	short := "Show a dialog and print the chosen button"
	if op == messages.OpConfirm {
		short = "Ask a Yes/No question"
	}
	cmd := &cobra.Command{
		Use:   op + " [message]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				req.Message = strings.Join(args, " ")
			}
			if kind != "" {
				t, err := theme.ParseType(kind)
				if err != nil {
					return err
				}
				req.Type = t
			}
			req.Position = surface.Position(position)
			req.Theme = ""
			if mode != "" {
				req.Theme = theme.ParseMode(mode)
			}
			req.Buttons = nil
			for _, spec := range buttons {
				req.Buttons = append(req.Buttons, parseButton(spec))
			}
			return app.dispatch(cmd, messages.Request{Op: op, Dialog: req}, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "", "Dialog title")
	f.StringVar(&req.Message, "message", "", "Dialog message")
	f.StringVar(&kind, "type", "", "Info, Success, Warning, Error or Question")
	f.StringArrayVar(&buttons, "button", nil, "Button label; append :default or :cancel to mark it (repeatable)")
	f.DurationVar(&req.Timeout, "timeout", 0, "Dismiss with a Timeout result after this long")
	f.StringVar(&position, "position", "", "Screen anchor, e.g. MiddleCenter")
	f.BoolVar(&req.Topmost, "topmost", false, "Keep above other windows")
	f.StringVar(&mode, "mode", "", "Paint this dialog Light, Dark or Auto instead of the host theme")
	f.StringVar(&req.Accent, "accent", "", "Accent color as #rrggbb")
	return cmd
}

// parseButton reads "Label[:default][:cancel]".
func parseButton(spec string) dialog.Button {
	parts := strings.Split(spec, ":")
	b := dialog.Button{Label: parts[0]}
	for _, p := range parts[1:] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "default":
			b.IsDefault = true
		case "cancel":
			b.IsCancel = true
		}
	}
	return b
}

func newProgressCmd(app *cliApp) *cobra.Command {
	req := &progress.Request{}
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show a progress window driven by stdin",
		Long: "Each stdin line updates the window: \"<percent>[%] [message]\", " +
			"\"done [message]\", \"fail [message]\" or \"cancel\". End of input before done fails the run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			updates := readUpdates(ctx, app.stdin)
			return app.dispatch(cmd, messages.Request{Op: messages.OpProgress, Progress: req}, updates)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "Working", "Window title")
	f.StringVar(&req.Message, "message", "", "Initial status line")
	f.BoolVar(&req.Indeterminate, "indeterminate", false, "Show an animated bar instead of a percentage")
	f.BoolVar(&req.Cancellable, "cancellable", false, "Offer a Cancel button")
	return cmd
}

// readUpdates parses stdin lines until a terminal update or end of input.
func readUpdates(ctx context.Context, r io.Reader) <-chan messages.Update {
	ch := make(chan messages.Update)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) == "" {
				continue
			}
			u, err := messages.ParseUpdate(sc.Text())
			if err != nil {
				log.Printf("Progress: skipping %q: %v", logutil.Sanitize(sc.Text()), err)
				continue
			}
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
			if u.Kind != messages.UpdateProgress {
				return
			}
		}
	}()
	return ch
}

func newSimpleCmd(app *cliApp, op, short string) *cobra.Command {
	return &cobra.Command{
		Use:   op,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.dispatch(cmd, messages.Request{Op: op}, nil)
		},
	}
}

func newThemeCmd(app *cliApp) *cobra.Command {
	var accent string
	cmd := &cobra.Command{
		Use:   "theme [Light|Dark|Auto]",
		Short: "Print the palette in use, or the one a mode resolves to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := messages.Request{Op: messages.OpTheme, Accent: accent}
			if len(args) == 1 {
				req.Theme = args[0]
			}
			return app.dispatch(cmd, req, nil)
		},
	}
	cmd.Flags().StringVar(&accent, "accent", "", "Replace the primary color, as #rrggbb")
	return cmd
}

func newSelfTestCmd(app *cliApp) *cobra.Command {
	req := messages.Request{Op: messages.OpSelfTest}
	cmd := &cobra.Command{
		Use:   "test [Light|Dark|Auto]",
		Short: "Check theme detection and optionally show one toast per type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := req
			if len(args) == 1 {
				r.Theme = args[0]
			}
			r.Wait = app.opts.wait
			return app.dispatch(cmd, r, nil)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&req.ShowAll, "show-all", false, "Show Info, Success and Warning sample toasts")
	f.StringVar(&req.Accent, "accent", "", "Accent color as #rrggbb")
	f.BoolVar(&app.opts.wait, "wait", false, "Wait until the sample toasts close")
	return cmd
}

func (app *cliApp) target(cmd *cobra.Command) output.Target {
	var primary output.Target = output.StdoutTarget{Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
	if app.opts.jsonOutput {
		primary = output.JSONTarget{Writer: cmd.OutOrStdout()}
	}
	if app.opts.copy {
		return output.Multi(primary, output.ClipboardTarget{})
	}
	return primary
}

// dispatch delivers req to the resident, or runs it in-process when none answers.
func (app *cliApp) dispatch(cmd *cobra.Command, req messages.Request, updates <-chan messages.Update) error {
	if err := req.Validate(); err != nil {
		return err
	}
	target := app.target(cmd)
	v, err := app.deliver(cmd.Context(), req, updates)
	if err != nil {
		if terr := target.OnFailure(err); terr != nil {
			return fmt.Errorf("%v (and reporting it failed: %w)", err, terr)
		}
		return errReported
	}
	return target.OnSuccess(v)
}

func (app *cliApp) deliver(ctx context.Context, req messages.Request, updates <-chan messages.Update) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !app.opts.standalone {
		delegated, body, err := app.client.TryDelegate(ctx, req, updates)
		if delegated {
			log.Printf("Delegated %s to resident", req.Op)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(body), nil
		}
		if err != nil {
			log.Printf("Delegation error: %v; running standalone", err)
		} else {
			log.Printf("No resident detected, running standalone")
		}
	}
	return app.standalone(ctx, app.rt, req, updates)
}

// headless reports whether req can run without a display.
func headless(req messages.Request) bool {
	switch req.Op {
	case messages.OpList, messages.OpCloseAll, messages.OpTheme:
		return true
	case messages.OpSelfTest:
		return !req.ShowAll
	}
	return false
}

// runStandalone executes req with a private host. Operations that show
// surfaces get their own fyne app for the duration of the request.
func runStandalone(ctx context.Context, rt *runtimeinit.Runtime, req messages.Request, updates <-chan messages.Update) (any, error) {
	if rt == nil {
		return nil, errors.New("runtime not initialised")
	}
	if headless(req) {
		loop := uithread.New(4)
		defer loop.Close()
		h := host.New(loop, nil, host.Options{Palette: rt.Palette, CompleteGrace: rt.Config.CompleteGrace})
		return eventloop.Execute(ctx, h, toast.New(h, toast.Options{}), req, updates)
	}

	// The process exits with the request, so toasts are always awaited.
	req.Wait = true

	a := fyneui.NewApp(rt.Config.AppID)
	d := &fyneui.Dispatcher{}
	h := host.New(d, fyneui.New(a), host.Options{Palette: rt.Palette, CompleteGrace: rt.Config.CompleteGrace})
	n := toast.New(h, toast.Options{
		Rate:            rt.Config.ToastRate,
		Burst:           rt.Config.ToastBurst,
		DefaultDuration: rt.Config.ToastDuration,
		Native:          fyneui.SendNative(a),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	type outcome struct {
		v   any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := eventloop.Execute(ctx, h, n, req, updates)
		if req.Op == messages.OpToast && req.Toast.Native {
			// Give the notification centre a moment before the app goes away.
			time.Sleep(500 * time.Millisecond)
		}
		done <- outcome{v, err}
		fyne.Do(a.Quit)
	}()
	a.Run()
	d.Stop()
	cancel()
	o := <-done
	return o.v, o.err
}
