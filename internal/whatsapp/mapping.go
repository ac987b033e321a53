package whatsapp

import (
	"strings"

	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/outbox"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
)

// Inbound converts a customer message into ingest parameters. ok is false
// for messages the inbox does not track: our own, group and broadcast
// messages, and payloads without content (reactions, protocol messages).
//
// WhatsApp media is end-to-end encrypted, so media messages carry a
// reference URL under mediaBase keyed by the WhatsApp message id.
func Inbound(evt *events.Message, mediaBase string) (inboxservice.InboundParams, bool) {
	if evt == nil || evt.Message == nil {
		return inboxservice.InboundParams{}, false
	}
	info := evt.Info
	if info.IsFromMe || info.IsGroup || info.Chat.Server == types.BroadcastServer {
		return inboxservice.InboundParams{}, false
	}

	kind, content, ok := Content(evt.Message)
	if !ok {
		return inboxservice.InboundParams{}, false
	}

	params := inboxservice.InboundParams{
		Phone:       info.Sender.User,
		DisplayName: info.PushName,
		ExternalID:  info.ID,
		ContentKind: kind,
		Content:     content,
	}
	if params.Phone == "" {
		params.Phone = info.Chat.User
	}
	if kind.RequiresMedia() {
		params.MediaURL = strings.TrimRight(mediaBase, "/") + "/" + info.ID
	}
	return params, true
}

// Content picks the content kind and text of a WhatsApp message.
func Content(msg *waProto.Message) (lead.ContentKind, string, bool) {
	switch {
	case msg.GetConversation() != "":
		return lead.ContentText, msg.GetConversation(), true
	case msg.GetExtendedTextMessage() != nil:
		return lead.ContentText, msg.GetExtendedTextMessage().GetText(), true
	case msg.GetImageMessage() != nil:
		return lead.ContentImage, msg.GetImageMessage().GetCaption(), true
	case msg.GetVideoMessage() != nil:
		return lead.ContentVideo, msg.GetVideoMessage().GetCaption(), true
	case msg.GetAudioMessage() != nil:
		return lead.ContentAudio, "", true
	case msg.GetDocumentMessage() != nil:
		doc := msg.GetDocumentMessage()
		caption := doc.GetCaption()
		if caption == "" {
			caption = doc.GetFileName()
		}
		return lead.ContentDocument, caption, true
	case msg.GetStickerMessage() != nil:
		return lead.ContentSticker, "", true
	}
	return "", "", false
}

// ReadReceipt returns the ids of our messages a customer has read.
func ReadReceipt(evt *events.Receipt) ([]string, bool) {
	if evt == nil || evt.IsFromMe || evt.IsGroup || evt.Type != types.ReceiptTypeRead {
		return nil, false
	}
	ids := make([]string, 0, len(evt.MessageIDs))
	for _, id := range evt.MessageIDs {
		ids = append(ids, string(id))
	}
	return ids, len(ids) > 0
}

// Outbound renders an outbox job as a WhatsApp message. Media is sent as
// its link with the content as caption.
func Outbound(job outbox.Job) *waProto.Message {
	text := strings.TrimSpace(job.Content)
	if job.ContentKind.RequiresMedia() && job.MediaURL != "" {
		if text == "" {
			text = job.MediaURL
		} else {
			text = text + "\n" + job.MediaURL
		}
	}
	return &waProto.Message{Conversation: proto.String(text)}
}

func PhoneJID(phone string) types.JID {
	return types.NewJID(lead.NormalizePhone(phone), types.DefaultUserServer)
}
