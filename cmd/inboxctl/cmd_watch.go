package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/inbox"
)

var (
	watchInterval time.Duration
	watchPush     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print conversation changes as they happen",
	Long: `Keep the conversation list up to date and print every new or changed
conversation. By default the list is polled every --interval (the profile's
poll_interval); with --push it is refreshed on every server notification and
polled as a fallback.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "poll interval (default from profile)")
	watchCmd.Flags().BoolVar(&watchPush, "push", false, "follow the websocket notification feed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	interval := watchInterval
	if interval <= 0 {
		interval = profile.PollInterval
	}

	c := newClient()
	store := inbox.NewStore(c, logger)
	changes, stop := store.Watch(64)
	defer stop()

	g, ctx := errgroup.WithContext(cmd.Context())
	if watchPush {
		sub, err := c.Subscribe(ctx)
		if err != nil {
			return explain(err)
		}
		defer sub.Close()
		g.Go(func() error {
			err := store.Follow(ctx, sub)
			if err != nil {
				// polling keeps the list current without the feed
				logger.Warn("notification feed closed", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error { return store.Run(ctx, interval) })
	g.Go(func() error {
		printChanges(ctx, cmd.OutOrStdout(), changes)
		return nil
	})
	return g.Wait()
}

func printChanges(ctx context.Context, w io.Writer, changes <-chan inbox.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			printChange(w, ch)
		}
	}
}

func printChange(w io.Writer, ch inbox.Change) {
	c := ch.Conversation
	now := time.Now().Format("15:04:05")
	if ch.Kind == inbox.ChangeAdded || ch.Previous == nil {
		fmt.Fprintf(w, "%s + %s %s [%s/%s] %s\n", now, c.InboxID, contactName(c), c.Status, c.Mode, c.LastMessagePreview)
		return
	}
	prev := ch.Previous
	fmt.Fprintf(w, "%s ~ %s %s", now, c.InboxID, contactName(c))
	if prev.Status != c.Status {
		fmt.Fprintf(w, " status %s->%s", prev.Status, c.Status)
	}
	if prev.Mode != c.Mode {
		fmt.Fprintf(w, " mode %s->%s", prev.Mode, c.Mode)
	}
	if c.UnreadCount > 0 {
		fmt.Fprintf(w, " unread %d", c.UnreadCount)
	}
	if c.LastMessagePreview != "" {
		fmt.Fprintf(w, " %q", c.LastMessagePreview)
	}
	fmt.Fprintln(w)
}
