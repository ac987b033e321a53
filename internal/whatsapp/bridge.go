// Package whatsapp connects the inbox to a WhatsApp number through whatsmeow:
// customer messages are ingested, outbox jobs are delivered and read
// receipts are recorded.
package whatsapp

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/outbox"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
)

const (
	popTimeout  = 5 * time.Second
	callTimeout = 15 * time.Second
)

// Inbox is the part of the inbox service the bridge reports to.
type Inbox interface {
	IngestInbound(ctx context.Context, params inboxservice.InboundParams) (inboxservice.IngestResult, error)
	RecordDelivery(ctx context.Context, inboxID, messageID, externalID string, sendErr error) (model.MessageItem, error)
	RecordReadReceipt(ctx context.Context, externalIDs []string) (int, error)
}

// Jobs is the outbox read side.
type Jobs interface {
	Pop(ctx context.Context, timeout time.Duration) (outbox.Job, bool, error)
}

type messenger interface {
	SendMessage(ctx context.Context, to types.JID, message *waProto.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

type Bridge struct {
	client    *whatsmeow.Client
	sender    messenger
	inbox     Inbox
	jobs      Jobs
	mediaBase string
	log       *zap.Logger
}

// OpenClient loads (or creates) the device stored in the sqlite file at path.
func OpenClient(path string, log *zap.Logger) (*whatsmeow.Client, error) {
	container, err := sqlstore.New("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", path), NewLogger(log, "whatsapp-store"))
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}
	device, err := container.GetFirstDevice()
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}
	return whatsmeow.NewClient(device, NewLogger(log, "whatsapp")), nil
}

func NewBridge(client *whatsmeow.Client, inbox Inbox, jobs Jobs, mediaBase string, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Bridge{
		client:    client,
		inbox:     inbox,
		jobs:      jobs,
		mediaBase: mediaBase,
		log:       log.Named("bridge"),
	}
	if client != nil {
		b.sender = client
	}
	return b
}

// Connect logs in, pairing a new device with a QR code printed to the
// terminal when the store has no session yet.
func (b *Bridge) Connect(ctx context.Context) error {
	b.client.AddEventHandler(b.handleEvent)

	if b.client.Store.ID != nil {
		return b.client.Connect()
	}

	qrChan, err := b.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := b.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			b.log.Info("scan the QR code to pair the inbox number")
		case "success":
			b.log.Info("device paired")
			return nil
		case "timeout":
			return fmt.Errorf("pairing timed out")
		default:
			b.log.Warn("pairing event", zap.String("event", evt.Event), zap.Error(evt.Error))
		}
	}
	return nil
}

// Run delivers outbox jobs until ctx is cancelled, then disconnects.
func (b *Bridge) Run(ctx context.Context) error {
	defer func() {
		if b.client != nil {
			b.client.Disconnect()
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		job, ok, err := b.jobs.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.log.Error("outbox pop failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if ok {
			b.deliver(ctx, job)
		}
	}
}

func (b *Bridge) deliver(ctx context.Context, job outbox.Job) {
	sendCtx, cancel := context.WithTimeout(ctx, callTimeout)
	resp, sendErr := b.sender.SendMessage(sendCtx, PhoneJID(job.Phone), Outbound(job))
	cancel()

	externalID := ""
	if sendErr == nil {
		externalID = string(resp.ID)
	} else {
		b.log.Warn("whatsapp send failed", zap.String("messageId", job.MessageID), zap.Error(sendErr))
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), callTimeout)
	defer cancel()
	if _, err := b.inbox.RecordDelivery(recordCtx, job.ConversationID, job.MessageID, externalID, sendErr); err != nil {
		b.log.Error("record delivery failed", zap.String("messageId", job.MessageID), zap.Error(err))
	}
}

func (b *Bridge) handleEvent(evt interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	switch v := evt.(type) {
	case *events.Message:
		params, ok := Inbound(v, b.mediaBase)
		if !ok {
			return
		}
		res, err := b.inbox.IngestInbound(ctx, params)
		if err != nil {
			b.log.Error("ingest failed", zap.String("externalId", params.ExternalID), zap.Error(err))
			return
		}
		if res.Duplicate {
			b.log.Debug("duplicate message ignored", zap.String("externalId", params.ExternalID))
		}
	case *events.Receipt:
		ids, ok := ReadReceipt(v)
		if !ok {
			return
		}
		if _, err := b.inbox.RecordReadReceipt(ctx, ids); err != nil {
			b.log.Warn("record read receipt failed", zap.Strings("externalIds", ids), zap.Error(err))
		}
	case *events.Connected:
		b.log.Info("whatsapp connected")
	case *events.Disconnected:
		b.log.Warn("whatsapp disconnected")
	case *events.LoggedOut:
		b.log.Error("whatsapp session logged out; remove the store to pair again")
	}
}
