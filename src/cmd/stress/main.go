package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"notify-shell/src/messages"
	"notify-shell/src/singleinstance"
	"notify-shell/src/toast"
)

type stressOptions struct {
	n        int
	mode     string
	deadline time.Duration
}

type tally struct {
	ok, busy, notDelegated, errs atomic.Int32
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts, singleinstance.NewClient)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions, newClient func() singleinstance.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "notify-stress",
		Short:         "Flood a running resident with delegated requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, newClient, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().StringVar(&opts.mode, "mode", "toast", "toast|list: request sent by every client")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")

	return cmd
}

func requestFor(mode string, i int) (messages.Request, error) {
	switch mode {
	case "toast":
		return messages.Request{Op: messages.OpToast, Toast: &toast.Request{
			Title:    "Stress",
			Message:  fmt.Sprintf("client %d", i),
			Duration: 2 * time.Second,
		}}, nil
	case "list":
		return messages.Request{Op: messages.OpList}, nil
	}
	return messages.Request{}, fmt.Errorf("unknown mode %q", mode)
}

func runWithOptions(opts stressOptions, newClient func() singleinstance.Client, out io.Writer) error {
	if _, err := requestFor(opts.mode, 0); err != nil {
		return err
	}
	var wg sync.WaitGroup
	var t tally

	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			req, _ := requestFor(opts.mode, i)
			delegated, _, err := newClient().TryDelegate(ctx, req, nil)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				t.busy.Add(1)
			case err != nil:
				t.errs.Add(1)
			case !delegated:
				t.notDelegated.Add(1)
			default:
				t.ok.Add(1)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)
	fmt.Fprintf(out, "launched=%d ok=%d busy=%d no-resident=%d err=%d elapsed=%s\n",
		opts.n, t.ok.Load(), t.busy.Load(), t.notDelegated.Load(), t.errs.Load(), elapsed.Round(time.Millisecond))
	return nil
}
