package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/inbox"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

var (
	listStatus string
	listSearch string
	listMine   bool

	sendKind     string
	sendMediaURL string
)

// listCmd prints the conversation list
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Long: `List conversations in server order.

--status takes a lead status (NUEVO, PENDIENTE, EN_GESTION, SEGUIMIENTO,
COTIZADO, CIERRE, DESCARTADO) or TODOS. --search matches the contact name
or phone number.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-id> <text>",
	Short: "Send a message as the assigned advisor",
	Long: `Send a message to the customer. The conversation must be in ADVISOR mode;
take the chat first while the bot is handling it.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSend,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", inbox.TabAll, "status tab")
	listCmd.Flags().StringVar(&listSearch, "search", "", "filter by name or phone")
	listCmd.Flags().BoolVar(&listMine, "mine", false, "only conversations assigned to me")

	sendCmd.Flags().StringVar(&sendKind, "kind", string(lead.ContentText), "content kind (text, image, video, audio, document, sticker)")
	sendCmd.Flags().StringVar(&sendMediaURL, "media-url", "", "media URL for non-text messages")
}

func runList(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	tab := strings.ToUpper(strings.TrimSpace(listStatus))
	if tab != inbox.TabAll {
		if _, ok := lead.ParseStatus(tab); !ok {
			return fmt.Errorf("unknown status %q", listStatus)
		}
	}

	store := inbox.NewStore(newClient(), logger)
	if _, err := store.Refresh(cmd.Context()); err != nil {
		return err
	}

	conversations := store.List(inbox.Filter{Tab: tab, Search: listSearch})
	if listMine {
		mine := conversations[:0]
		for _, c := range conversations {
			if c.AssignedAgentID == profile.AgentID {
				mine = append(mine, c)
			}
		}
		conversations = mine
	}
	printConversations(cmd.OutOrStdout(), conversations)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	session, store, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if c, ok := store.Get(args[0]); ok {
		printConversation(out, c)
	}
	if composer := session.Composer(); !composer.Enabled {
		fmt.Fprintf(out, "(%s)\n", composer.Notice)
	}
	fmt.Fprintln(out)
	printTimeline(out, session.Timeline(cmd.Context()))
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	session, _, err := openSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	msg, err := session.Send(cmd.Context(), dto.SendMessageRequest{
		Content:     strings.Join(args[1:], " "),
		ContentKind: lead.ContentKind(sendKind),
		MediaURL:    sendMediaURL,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "sent %s (%s)\n", msg.ID, msg.DeliveryStatus)
	return nil
}

func printConversations(w io.Writer, conversations []dto.Conversation) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCONTACT\tSTATUS\tMODE\tUNREAD\tLAST MESSAGE\tPREVIEW")
	for _, c := range conversations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.InboxID, contactName(c), c.Status, c.Mode, c.UnreadCount, formatTime(c.LastMessageAt), c.LastMessagePreview)
	}
	tw.Flush()
}

func printConversation(w io.Writer, c dto.Conversation) {
	fmt.Fprintf(w, "%s  %s\n", contactName(c), c.Phone)
	fmt.Fprintf(w, "status: %s  mode: %s", c.Status, c.Mode)
	if c.AssignedAgentID != "" {
		fmt.Fprintf(w, "  agent: %s", c.AssignedAgentID)
	}
	if c.ClientID != "" {
		fmt.Fprintf(w, "  client: %s", c.ClientID)
	}
	fmt.Fprintln(w)
	if c.Discard != nil {
		fmt.Fprintf(w, "discarded: %s (%s)\n", c.Discard.Motivo, c.Discard.Comentario)
	}
}

func printTimeline(w io.Writer, entries []inbox.Entry) {
	for _, e := range entries {
		m := e.Message
		who := string(m.SenderKind)
		if m.Direction == lead.DirectionInbound {
			who = "<< " + who
		} else {
			who = ">> " + who
		}
		var body string
		switch e.Kind {
		case inbox.EntryMedia:
			body = fmt.Sprintf("[%s] %s %s", m.ContentKind, e.MediaURL, e.Caption)
		default:
			body = e.Text
		}
		fmt.Fprintf(w, "%s %-12s %s\n", m.CreatedAt.Local().Format("02/01 15:04"), who, strings.TrimSpace(body))
	}
}

func contactName(c dto.Conversation) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Phone
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("02/01 15:04")
}
