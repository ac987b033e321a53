package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/client"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/inbox"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

var (
	discardReason  string
	discardComment string

	convertClientID     string
	convertBusinessName string
	convertTaxID        string
	convertContactName  string
	convertPhone        string
	convertEmail        string
)

var takeCmd = &cobra.Command{
	Use:   "take <conversation-id>",
	Short: "Take the chat from the bot",
	Args:  cobra.ExactArgs(1),
	RunE:  runTake,
}

var releaseCmd = &cobra.Command{
	Use:   "release <conversation-id>",
	Short: "Hand the chat back to the bot",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelease,
}

var statusCmd = &cobra.Command{
	Use:   "status <conversation-id> <status>",
	Short: "Change the lead status",
	Long: `Change the lead status. DESCARTADO and CIERRE are not set directly:
use 'inboxctl discard' and 'inboxctl convert'.`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

var discardCmd = &cobra.Command{
	Use:   "discard <conversation-id>",
	Short: "Discard the lead with a reason and a comment",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscard,
}

var convertCmd = &cobra.Command{
	Use:   "convert <conversation-id>",
	Short: "Close the lead as a CRM client",
	Long: `Close the lead (CIERRE) linked to an existing client (--client-id) or to a
new one (--business-name and --tax-id, the 11 digit RUC).`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	reasons := make([]string, 0, len(lead.DiscardReasons))
	for _, r := range lead.DiscardReasons {
		reasons = append(reasons, string(r))
	}
	discardCmd.Flags().StringVar(&discardReason, "motivo", "", "reason: "+strings.Join(reasons, ", "))
	discardCmd.Flags().StringVar(&discardComment, "comentario", "", "free-text comment")

	convertCmd.Flags().StringVar(&convertClientID, "client-id", "", "existing client id")
	convertCmd.Flags().StringVar(&convertBusinessName, "business-name", "", "new client business name")
	convertCmd.Flags().StringVar(&convertTaxID, "tax-id", "", "new client RUC")
	convertCmd.Flags().StringVar(&convertContactName, "contact", "", "new client contact name")
	convertCmd.Flags().StringVar(&convertPhone, "phone", "", "new client phone")
	convertCmd.Flags().StringVar(&convertEmail, "email", "", "new client email")
	convertCmd.MarkFlagsMutuallyExclusive("client-id", "business-name")
	convertCmd.MarkFlagsMutuallyExclusive("client-id", "tax-id")
}

func runTake(cmd *cobra.Command, args []string) error {
	session, _, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	c, err := session.TakeChat(cmd.Context())
	return report(cmd.OutOrStdout(), c, err)
}

func runRelease(cmd *cobra.Command, args []string) error {
	session, _, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	c, err := session.ReleaseChat(cmd.Context())
	return report(cmd.OutOrStdout(), c, err)
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, ok := lead.ParseStatus(args[1])
	if !ok {
		return fmt.Errorf("unknown status %q", args[1])
	}
	session, _, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	c, err := session.ChangeStatus(cmd.Context(), status)
	switch {
	case errors.Is(err, lead.ErrDiscardFlowRequired):
		return fmt.Errorf("%w: use 'inboxctl discard %s --motivo ... --comentario ...'", err, args[0])
	case errors.Is(err, lead.ErrClientLinkRequired):
		return fmt.Errorf("%w: use 'inboxctl convert %s'", err, args[0])
	}
	return report(cmd.OutOrStdout(), c, err)
}

func runDiscard(cmd *cobra.Command, args []string) error {
	form := inbox.DiscardForm{
		InboxID: args[0],
		Reason:  lead.DiscardReason(discardReason),
		Comment: discardComment,
	}
	// incomplete forms never reach the server
	if err := form.Validate(); err != nil {
		return err
	}
	session, _, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	c, err := session.ConfirmDiscard(cmd.Context(), form)
	return report(cmd.OutOrStdout(), c, err)
}

func runConvert(cmd *cobra.Command, args []string) error {
	form := inbox.ClientForm{
		ClientID:     convertClientID,
		BusinessName: convertBusinessName,
		TaxID:        convertTaxID,
		ContactName:  convertContactName,
		Phone:        convertPhone,
		Email:        convertEmail,
	}
	if err := form.Validate(); err != nil {
		return err
	}
	session, _, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	res, err := session.CloseAsClient(cmd.Context(), form)
	if err != nil {
		return explain(err)
	}
	out := cmd.OutOrStdout()
	printConversation(out, res.Conversation)
	fmt.Fprintf(out, "client: %s %s (RUC %s)\n", res.Client.ClientID, res.Client.BusinessName, res.Client.TaxID)
	return nil
}

// report prints the conversation as it now stands; on a rejection that is
// the server's version.
func report(w io.Writer, c dto.Conversation, err error) error {
	if err != nil {
		if server, ok := client.ServerConversation(err); ok {
			printConversation(w, server)
		}
		return explain(err)
	}
	printConversation(w, c)
	return nil
}

func explain(err error) error {
	var cerr *client.Error
	if errors.As(err, &cerr) && cerr.Kind == client.KindRejected && cerr.Message != "" {
		return fmt.Errorf("rejected by server (%d): %s", cerr.Status, cerr.Message)
	}
	return err
}
