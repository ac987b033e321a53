package inbox

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/client"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/dto"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

func TestComposerFollowsMode(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	s, _ := newSelected(t, backend, "a")

	composer := s.Composer()
	assert.False(t, composer.Enabled)
	assert.NotEmpty(t, composer.Notice)
	assert.False(t, composer.ReactivateAvailable)

	_, err := s.TakeChat(context.Background())
	require.NoError(t, err)
	composer = s.Composer()
	assert.True(t, composer.Enabled)
	assert.False(t, composer.ReactivateAvailable)
}

func TestSendWhileBotMakesNoCall(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	s, _ := newSelected(t, backend, "a")

	_, err := s.Send(context.Background(), dto.SendMessageRequest{Content: "hola"})
	assert.ErrorIs(t, err, ErrComposerDisabled)
	assert.Zero(t, backend.count("send"))
}

func TestSendRefetchesTimeline(t *testing.T) {
	c := conv("a", lead.ModeAdvisor, lead.StatusEnGestion)
	c.AssignedAgentID = "ana"
	backend := newFakeBackend(c)
	backend.messages["a"] = []dto.Message{textMessage("m1", "a", t0)}
	s, _ := newSelected(t, backend, "a")
	require.Len(t, s.Messages(), 1)

	_, err := s.Send(context.Background(), dto.SendMessageRequest{Content: "Le envío la cotización"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.count("messages:a"))
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Le envío la cotización", msgs[1].Content)
}

func TestTakeChatIdempotent(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	s, store := newSelected(t, backend, "a")

	first, err := s.TakeChat(context.Background())
	require.NoError(t, err)
	second, err := s.TakeChat(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.count("take"))
	assert.Equal(t, first, second)
	got, _ := store.Get("a")
	assert.Equal(t, lead.ModeAdvisor, got.Mode)
	assert.Equal(t, "ana", got.AssignedAgentID)
}

func TestTakeConflictAppliesServerConversation(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	s, store := newSelected(t, backend, "a")

	server := conv("a", lead.ModeAdvisor, lead.StatusNuevo)
	server.AssignedAgentID = "luis"
	server.Version = 2
	backend.failWith["take"] = &client.Error{Kind: client.KindRejected, Status: http.StatusConflict, Conversation: &server}

	_, err := s.TakeChat(context.Background())
	assert.True(t, client.IsKind(err, client.KindRejected))
	got, _ := store.Get("a")
	assert.Equal(t, "luis", got.AssignedAgentID)
	assert.Equal(t, int64(2), got.Version)
}

func TestReleaseOfBotConversationIsNoop(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	s, _ := newSelected(t, backend, "a")

	_, err := s.ReleaseChat(context.Background())
	require.NoError(t, err)
	assert.Zero(t, backend.count("release"))
}

func TestStatusFlow(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeAdvisor, lead.StatusNuevo))
	s, store := newSelected(t, backend, "a")
	ctx := context.Background()

	updated, err := s.ChangeStatus(ctx, lead.StatusEnGestion)
	require.NoError(t, err)
	assert.Equal(t, lead.StatusEnGestion, updated.Status)
	assert.Equal(t, int64(2), updated.Version)

	// same status: nothing sent
	_, err = s.ChangeStatus(ctx, lead.StatusEnGestion)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.count("status"))

	backend.failWith["status"] = &client.Error{Kind: client.KindTransport, Err: errors.New("connection reset")}
	_, err = s.ChangeStatus(ctx, lead.StatusCotizado)
	require.Error(t, err)
	got, _ := store.Get("a")
	assert.Equal(t, lead.StatusEnGestion, got.Status, "reverted to last known-good")

	// retry by selecting again
	delete(backend.failWith, "status")
	_, err = s.ChangeStatus(ctx, lead.StatusCotizado)
	require.NoError(t, err)
	got, _ = store.Get("a")
	assert.Equal(t, lead.StatusCotizado, got.Status)
}

func TestStatusChangeIsOptimisticAndGuarded(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeAdvisor, lead.StatusNuevo))
	s, store := newSelected(t, backend, "a")
	release := make(chan struct{})
	backend.block["status"] = release

	result := make(chan error, 1)
	go func() {
		_, err := s.ChangeStatus(context.Background(), lead.StatusSeguimiento)
		result <- err
	}()
	<-backend.started

	got, _ := store.Get("a")
	assert.Equal(t, lead.StatusSeguimiento, got.Status)

	_, err := s.ChangeStatus(context.Background(), lead.StatusPendiente)
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	require.NoError(t, <-result)
	assert.Equal(t, 1, backend.count("status"))
}

func TestTerminalStatusIsNeverMutated(t *testing.T) {
	for _, status := range []lead.Status{lead.StatusCierre, lead.StatusDescartado} {
		backend := newFakeBackend(conv("a", lead.ModeAdvisor, status))
		s, _ := newSelected(t, backend, "a")
		ctx := context.Background()

		_, err := s.ChangeStatus(ctx, lead.StatusEnGestion)
		assert.ErrorIs(t, err, lead.ErrTerminalStatus)
		_, err = s.ConfirmDiscard(ctx, DiscardForm{Reason: lead.ReasonOtro, Comment: "x"})
		assert.ErrorIs(t, err, lead.ErrTerminalStatus)
		_, err = s.CloseAsClient(ctx, ClientForm{ClientID: "cl-1"})
		assert.ErrorIs(t, err, lead.ErrTerminalStatus)

		assert.Zero(t, backend.count("status")+backend.count("discard")+backend.count("convert"))
	}
}

func TestDropdownOpensSubFlows(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeAdvisor, lead.StatusCotizado))
	s, _ := newSelected(t, backend, "a")

	_, err := s.ChangeStatus(context.Background(), lead.StatusDescartado)
	assert.ErrorIs(t, err, lead.ErrDiscardFlowRequired)
	form, open := s.PendingDiscard()
	require.True(t, open)
	assert.Equal(t, "a", form.InboxID)

	s.CancelDiscard()
	_, open = s.PendingDiscard()
	assert.False(t, open)

	_, err = s.ChangeStatus(context.Background(), lead.StatusCierre)
	assert.ErrorIs(t, err, lead.ErrClientLinkRequired)
	assert.True(t, s.Closing())
	assert.Zero(t, backend.count("status"))
}

func TestIncompleteDiscardMakesNoCall(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeAdvisor, lead.StatusEnGestion))
	s, _ := newSelected(t, backend, "a")
	ctx := context.Background()

	for _, form := range []DiscardForm{
		{},
		{Reason: lead.ReasonPrecio},
		{Comment: "no contesta"},
		{Reason: lead.ReasonPrecio, Comment: "   "},
		{Reason: "Me cae mal", Comment: "x"},
	} {
		_, err := s.ConfirmDiscard(ctx, form)
		assert.ErrorIs(t, err, ErrDiscardIncomplete)
	}
	assert.Zero(t, backend.count("discard"))
}

func TestConfirmDiscardClearsSelection(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeAdvisor, lead.StatusEnGestion))
	s, store := newSelected(t, backend, "a")

	form, err := s.StartDiscard()
	require.NoError(t, err)
	form.Reason = lead.ReasonNoResponde
	form.Comment = "Tres intentos sin respuesta"

	updated, err := s.ConfirmDiscard(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, lead.StatusDescartado, updated.Status)
	_, selected := s.Selected()
	assert.False(t, selected)
	got, _ := store.Get("a")
	assert.Equal(t, lead.StatusDescartado, got.Status)
}

func TestCloseAsClient(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeAdvisor, lead.StatusCotizado))
	s, store := newSelected(t, backend, "a")
	ctx := context.Background()

	_, err := s.CloseAsClient(ctx, ClientForm{BusinessName: "Corban SAC", TaxID: "2060"})
	assert.ErrorIs(t, err, lead.ErrInvalidTaxID)
	assert.Zero(t, backend.count("convert"))

	res, err := s.CloseAsClient(ctx, ClientForm{BusinessName: "  Corban   SAC ", TaxID: "20601234567"})
	require.NoError(t, err)
	assert.Equal(t, "Corban SAC", res.Client.BusinessName)
	got, _ := store.Get("a")
	assert.Equal(t, lead.StatusCierre, got.Status)
	assert.Equal(t, "cl-1", got.ClientID)
	assert.False(t, s.Closing())
}

func TestMarkReadOncePerSelection(t *testing.T) {
	c := conv("a", lead.ModeBot, lead.StatusNuevo)
	c.UnreadCount = 2
	c.LastMessageAt = &t0
	backend := newFakeBackend(c)
	backend.failWith["read"] = errors.New("boom")
	s, store := newSelected(t, backend, "a")
	ctx := context.Background()
	assert.Equal(t, 1, backend.count("read"))

	// still unread, nothing new: no second request
	s.HandleChange(ctx, Change{Kind: ChangeUpdated, Conversation: c, Previous: &c})
	assert.Equal(t, 1, backend.count("read"))

	later := t0.Add(time.Minute)
	next := c
	next.LastMessageAt = &later
	next.UnreadCount = 3
	next.Version = 2
	store.Put(next)
	s.HandleChange(ctx, Change{Kind: ChangeUpdated, Conversation: next, Previous: &c})
	assert.Equal(t, 2, backend.count("read"))
	assert.Equal(t, 2, backend.count("messages:a"))

	// a new selection event issues again
	require.NoError(t, s.Select(ctx, "a"))
	assert.Equal(t, 3, backend.count("read"))
}

func TestMarkReadSkippedWhenNothingUnread(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	newSelected(t, backend, "a")
	assert.Zero(t, backend.count("read"))
}

func TestStaleTimelineIsDropped(t *testing.T) {
	backend := newFakeBackend(
		conv("a", lead.ModeBot, lead.StatusNuevo),
		conv("b", lead.ModeBot, lead.StatusNuevo),
	)
	backend.messages["a"] = []dto.Message{textMessage("a1", "a", t0)}
	backend.messages["b"] = []dto.Message{textMessage("b1", "b", t0)}
	release := make(chan struct{})
	backend.block["messages:a"] = release

	store := NewStore(backend, nil)
	_, err := store.Refresh(context.Background())
	require.NoError(t, err)
	s := NewSession(backend, store, "ana")

	result := make(chan error, 1)
	go func() { result <- s.Select(context.Background(), "a") }()
	<-backend.started

	require.NoError(t, s.Select(context.Background(), "b"))
	close(release)

	assert.ErrorIs(t, <-result, ErrStaleSelection)
	id, _ := s.Selected()
	assert.Equal(t, "b", id)
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "b1", msgs[0].ID)
}

func TestLateDiscardKeepsNewSelection(t *testing.T) {
	backend := newFakeBackend(
		conv("a", lead.ModeAdvisor, lead.StatusEnGestion),
		conv("b", lead.ModeBot, lead.StatusNuevo),
	)
	backend.messages["b"] = []dto.Message{textMessage("b1", "b", t0)}
	release := make(chan struct{})
	backend.block["discard"] = release
	s, store := newSelected(t, backend, "a")

	result := make(chan error, 1)
	go func() {
		_, err := s.ConfirmDiscard(context.Background(), DiscardForm{
			Reason:  lead.ReasonNoResponde,
			Comment: "Cliente no contesta hace 3 intentos",
		})
		result <- err
	}()
	<-backend.started

	require.NoError(t, s.Select(context.Background(), "b"))
	_, err := s.StartDiscard()
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-result)

	id, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", id)
	form, ok := s.PendingDiscard()
	require.True(t, ok)
	assert.Equal(t, "b", form.InboxID)
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, "b1", s.Messages()[0].ID)

	a, _ := store.Get("a")
	assert.Equal(t, lead.StatusDescartado, a.Status)
}

func TestLateConvertKeepsNewCloseForm(t *testing.T) {
	backend := newFakeBackend(
		conv("a", lead.ModeAdvisor, lead.StatusCotizado),
		conv("b", lead.ModeAdvisor, lead.StatusCotizado),
	)
	release := make(chan struct{})
	backend.block["convert"] = release
	s, store := newSelected(t, backend, "a")

	result := make(chan error, 1)
	go func() {
		_, err := s.CloseAsClient(context.Background(), ClientForm{ClientID: "cl-9"})
		result <- err
	}()
	<-backend.started

	require.NoError(t, s.Select(context.Background(), "b"))
	_, err := s.ChangeStatus(context.Background(), lead.StatusCierre)
	require.ErrorIs(t, err, lead.ErrClientLinkRequired)
	require.True(t, s.Closing())
	close(release)
	require.NoError(t, <-result)

	id, _ := s.Selected()
	assert.Equal(t, "b", id)
	assert.True(t, s.Closing())

	a, _ := store.Get("a")
	assert.Equal(t, lead.StatusCierre, a.Status)
	assert.Equal(t, "cl-9", a.ClientID)
}

func TestDiscardClearsSelectionWhenStillSelected(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeAdvisor, lead.StatusEnGestion))
	s, _ := newSelected(t, backend, "a")

	_, err := s.ConfirmDiscard(context.Background(), DiscardForm{Reason: lead.ReasonPrecio, Comment: "fuera de presupuesto"})
	require.NoError(t, err)
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestTimelineKeepsServerOrder(t *testing.T) {
	backend := newFakeBackend(conv("a", lead.ModeBot, lead.StatusNuevo))
	backend.messages["a"] = []dto.Message{
		textMessage("m3", "a", t0.Add(2*time.Minute)),
		textMessage("m1", "a", t0),
		textMessage("m2", "a", t0.Add(time.Minute)),
	}
	s, _ := newSelected(t, backend, "a")

	var ids []string
	for _, e := range s.Timeline(context.Background()) {
		ids = append(ids, e.Message.ID)
	}
	assert.Equal(t, []string{"m3", "m1", "m2"}, ids)
}
