// Command inboxctl drives the lead inbox from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/client"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/inbox"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/logging"
)

var (
	logger      *zap.Logger
	profilePath string
	debug       bool
	profile     *Profile
)

var rootCmd = &cobra.Command{
	Use:   "inboxctl",
	Short: "Operate the SGI WhatsApp lead inbox",
	Long: `inboxctl lists, reads and manages WhatsApp lead conversations.

Run 'inboxctl login' first; the session is kept in the profile file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger == nil {
			logger = logging.NewCLI(debug)
		}
		p, err := loadProfile(profilePath)
		if err != nil {
			return err
		}
		profile = p
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", defaultProfilePath(), "profile file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	rootCmd.AddCommand(
		loginCmd,
		listCmd,
		showCmd,
		sendCmd,
		takeCmd,
		releaseCmd,
		statusCmd,
		discardCmd,
		convertCmd,
		watchCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	opts := []client.Option{client.WithLogger(logger), client.WithToken(profile.Token)}
	if profile.WSURL != "" {
		opts = append(opts, client.WithWebsocketURL(profile.WSURL))
	}
	return client.New(profile.BaseURL, opts...)
}

func requireLogin() error {
	if profile.Token == "" {
		return fmt.Errorf("not logged in, run 'inboxctl login'")
	}
	return nil
}

// openSession selects id the way the inbox screen does, which marks unread
// customer messages as read.
func openSession(ctx context.Context, id string) (*inbox.Session, *inbox.Store, error) {
	if err := requireLogin(); err != nil {
		return nil, nil, err
	}
	c := newClient()
	store := inbox.NewStore(c, logger)
	session := inbox.NewSession(c, store, profile.AgentID,
		inbox.WithMediaResolver(client.NewHTTPMediaResolver(nil)),
		inbox.WithSessionLogger(logger),
	)
	if err := session.Select(ctx, id); err != nil {
		return nil, nil, err
	}
	return session, store, nil
}
