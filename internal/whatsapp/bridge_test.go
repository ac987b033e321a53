package whatsapp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/goleak"
	"google.golang.org/protobuf/proto"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/model"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/outbox"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
)

var customer = types.NewJID("51987654321", types.DefaultUserServer)

func customerMessage(msg *waProto.Message) *events.Message {
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{Chat: customer, Sender: customer},
			ID:            "3EB0ABC",
			PushName:      "María",
		},
		Message: msg,
	}
}

func TestContentKinds(t *testing.T) {
	cases := []struct {
		msg     *waProto.Message
		kind    lead.ContentKind
		content string
	}{
		{&waProto.Message{Conversation: proto.String("hola")}, lead.ContentText, "hola"},
		{&waProto.Message{ExtendedTextMessage: &waProto.ExtendedTextMessage{Text: proto.String("ver enlace")}}, lead.ContentText, "ver enlace"},
		{&waProto.Message{ImageMessage: &waProto.ImageMessage{Caption: proto.String("factura")}}, lead.ContentImage, "factura"},
		{&waProto.Message{VideoMessage: &waProto.VideoMessage{}}, lead.ContentVideo, ""},
		{&waProto.Message{AudioMessage: &waProto.AudioMessage{}}, lead.ContentAudio, ""},
		{&waProto.Message{DocumentMessage: &waProto.DocumentMessage{FileName: proto.String("ruc.pdf")}}, lead.ContentDocument, "ruc.pdf"},
		{&waProto.Message{StickerMessage: &waProto.StickerMessage{}}, lead.ContentSticker, ""},
	}
	for _, tc := range cases {
		kind, content, ok := Content(tc.msg)
		require.True(t, ok)
		assert.Equal(t, tc.kind, kind)
		assert.Equal(t, tc.content, content)
	}

	_, _, ok := Content(&waProto.Message{})
	assert.False(t, ok)
}

func TestInbound(t *testing.T) {
	params, ok := Inbound(customerMessage(&waProto.Message{Conversation: proto.String("Necesito cotizar")}), "https://media.corban.pe/")
	require.True(t, ok)
	assert.Equal(t, "51987654321", params.Phone)
	assert.Equal(t, "María", params.DisplayName)
	assert.Equal(t, "3EB0ABC", params.ExternalID)
	assert.Equal(t, lead.ContentText, params.ContentKind)
	assert.Empty(t, params.MediaURL)

	params, ok = Inbound(customerMessage(&waProto.Message{ImageMessage: &waProto.ImageMessage{}}), "https://media.corban.pe/")
	require.True(t, ok)
	assert.Equal(t, "https://media.corban.pe/3EB0ABC", params.MediaURL)

	own := customerMessage(&waProto.Message{Conversation: proto.String("x")})
	own.Info.IsFromMe = true
	_, ok = Inbound(own, "")
	assert.False(t, ok)

	group := customerMessage(&waProto.Message{Conversation: proto.String("x")})
	group.Info.IsGroup = true
	_, ok = Inbound(group, "")
	assert.False(t, ok)
}

func TestReadReceipt(t *testing.T) {
	ids, ok := ReadReceipt(&events.Receipt{
		MessageSource: types.MessageSource{Chat: customer, Sender: customer},
		MessageIDs:    []types.MessageID{"a", "b"},
		Type:          types.ReceiptTypeRead,
	})
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)

	_, ok = ReadReceipt(&events.Receipt{
		MessageSource: types.MessageSource{Chat: customer, Sender: customer},
		MessageIDs:    []types.MessageID{"a"},
		Type:          types.ReceiptTypeDelivered,
	})
	assert.False(t, ok)
}

func TestOutbound(t *testing.T) {
	msg := Outbound(outbox.Job{ContentKind: lead.ContentText, Content: " Buenos días "})
	assert.Equal(t, "Buenos días", msg.GetConversation())

	msg = Outbound(outbox.Job{ContentKind: lead.ContentDocument, Content: "Cotización", MediaURL: "https://cdn/cot.pdf"})
	assert.Equal(t, "Cotización\nhttps://cdn/cot.pdf", msg.GetConversation())

	assert.Equal(t, "51987654321", PhoneJID("+51 987 654 321").User)
}

type fakeInbox struct {
	mu         sync.Mutex
	ingested   []inboxservice.InboundParams
	deliveries []string
	sendErrs   []error
	receipts   [][]string
}

func (f *fakeInbox) IngestInbound(_ context.Context, params inboxservice.InboundParams) (inboxservice.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingested = append(f.ingested, params)
	return inboxservice.IngestResult{}, nil
}

func (f *fakeInbox) RecordDelivery(_ context.Context, inboxID, messageID, externalID string, sendErr error) (model.MessageItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, messageID+"="+externalID)
	f.sendErrs = append(f.sendErrs, sendErr)
	return model.MessageItem{}, nil
}

func (f *fakeInbox) RecordReadReceipt(_ context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, ids)
	return len(ids), nil
}

type fakeSender struct {
	err  error
	sent []types.JID
}

func (f *fakeSender) SendMessage(_ context.Context, to types.JID, _ *waProto.Message, _ ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error) {
	f.sent = append(f.sent, to)
	if f.err != nil {
		return whatsmeow.SendResponse{}, f.err
	}
	return whatsmeow.SendResponse{ID: "WAID-1"}, nil
}

type sliceJobs struct {
	mu   sync.Mutex
	jobs []outbox.Job
}

func (s *sliceJobs) Pop(ctx context.Context, _ time.Duration) (outbox.Job, bool, error) {
	s.mu.Lock()
	if len(s.jobs) > 0 {
		job := s.jobs[0]
		s.jobs = s.jobs[1:]
		s.mu.Unlock()
		return job, true, nil
	}
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return outbox.Job{}, false, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return outbox.Job{}, false, nil
	}
}

func TestHandleEvent(t *testing.T) {
	inbox := &fakeInbox{}
	b := NewBridge(nil, inbox, nil, "https://media.corban.pe", nil)

	b.handleEvent(customerMessage(&waProto.Message{Conversation: proto.String("hola")}))
	b.handleEvent(&events.Receipt{
		MessageSource: types.MessageSource{Chat: customer, Sender: customer},
		MessageIDs:    []types.MessageID{"WAID-1"},
		Type:          types.ReceiptTypeRead,
	})
	b.handleEvent(&events.Connected{})

	require.Len(t, inbox.ingested, 1)
	assert.Equal(t, "hola", inbox.ingested[0].Content)
	assert.Equal(t, [][]string{{"WAID-1"}}, inbox.receipts)
}

func TestRunDeliversJobs(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	inbox := &fakeInbox{}
	jobs := &sliceJobs{jobs: []outbox.Job{
		{MessageID: "m1", ConversationID: "wa-51987654321", Phone: "51987654321", ContentKind: lead.ContentText, Content: "hola"},
	}}
	sender := &fakeSender{}
	b := NewBridge(nil, inbox, jobs, "", nil)
	b.sender = sender

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		inbox.mu.Lock()
		defer inbox.mu.Unlock()
		return len(inbox.deliveries) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"m1=WAID-1"}, inbox.deliveries)
	assert.Equal(t, "51987654321", sender.sent[0].User)
}

func TestDeliverRecordsFailure(t *testing.T) {
	inbox := &fakeInbox{}
	b := NewBridge(nil, inbox, nil, "", nil)
	b.sender = &fakeSender{err: errors.New("not on whatsapp")}

	b.deliver(context.Background(), outbox.Job{MessageID: "m1", ConversationID: "wa-1", Phone: "51911111111", Content: "hola"})
	require.Len(t, inbox.sendErrs, 1)
	assert.Error(t, inbox.sendErrs[0])
	assert.Equal(t, []string{"m1="}, inbox.deliveries)
}
