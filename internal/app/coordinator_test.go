package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/petervdpas/goopchat/internal/call"
	"github.com/petervdpas/goopchat/internal/chat"
	"github.com/petervdpas/goopchat/internal/identity"
	"github.com/petervdpas/goopchat/internal/mocks"
	"github.com/petervdpas/goopchat/internal/proto"
	"github.com/petervdpas/goopchat/internal/storage"
)

type emitted struct {
	event   string
	payload any
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   []emitted
	joins  []string
	leaves []string
	events chan proto.Event
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan proto.Event, 16)}
}

func (f *fakeTransport) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, emitted{event, payload})
	return nil
}

func (f *fakeTransport) JoinChannel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, id)
	return nil
}

func (f *fakeTransport) LeaveChannel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, id)
	return nil
}

func (f *fakeTransport) Subscribe() (<-chan proto.Event, func()) {
	return f.events, func() {}
}

func (f *fakeTransport) emittedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, e := range f.sent {
		out = append(out, e.event)
	}
	return out
}

func (f *fakeTransport) joined() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.joins...)
}

// ── call fakes

type fakeTrack struct {
	mu      sync.Mutex
	kind    string
	enabled bool
}

func (t *fakeTrack) Kind() string { return t.kind }
func (t *fakeTrack) SetEnabled(on bool) {
	t.mu.Lock()
	t.enabled = on
	t.mu.Unlock()
}
func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}
func (t *fakeTrack) Stop() {}

type fakeStream []call.Track

func (s fakeStream) Tracks() []call.Track { return s }

type fakeMedia struct{}

func (fakeMedia) GetUserMedia(_ context.Context, c call.Constraints) (call.Stream, error) {
	s := fakeStream{&fakeTrack{kind: "audio", enabled: true}}
	if c.Video {
		s = append(s, &fakeTrack{kind: "video", enabled: true})
	}
	return s, nil
}

type fakePeer struct{}

func (fakePeer) Offer(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"type":"offer","sdp":"o"}`), nil
}
func (fakePeer) Answer(context.Context, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{"type":"answer","sdp":"a"}`), nil
}
func (fakePeer) Accept(json.RawMessage) error { return nil }
func (fakePeer) OnFailed(func(error))         {}
func (fakePeer) Close() error                 { return nil }

type fakePeers struct{}

func (fakePeers) NewPeer(call.Stream) (call.Peer, error) { return fakePeer{}, nil }

// ── helpers

var (
	t0  = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	me  = identity.Identity{UserID: "u1", Username: "ann", Token: "tok"}
	ctx = context.Background()

	general = chat.Channel{ID: "c1", Name: "general", Visibility: chat.VisibilityPublic, MemberIDs: []string{"u1", "u2"}}
	random  = chat.Channel{ID: "c2", Name: "random", Visibility: chat.VisibilityPublic}
)

func msgs(channelID string, ids ...string) []chat.Message {
	out := make([]chat.Message, len(ids))
	for i, id := range ids {
		out[i] = chat.Message{ID: id, ChannelID: channelID, SenderID: "u2", Content: id, CreatedAt: t0.Add(time.Duration(i) * time.Second)}
	}
	return out
}

func event(t *testing.T, name string, data any) proto.Event {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return proto.Event{Name: name, Data: b}
}

func wireMessage(id, channelID, content string, at time.Time) proto.MessagePayload {
	return proto.MessagePayload{
		ID:        id,
		Channel:   channelID,
		Sender:    proto.UserSummary{ID: "u2", Username: "bob"},
		Content:   content,
		Timestamp: at,
	}
}

type rig struct {
	tr    *fakeTransport
	api   *mocks.MockAPI
	calls *call.Manager
	c     *Coordinator
}

func newRig(t *testing.T, cache Cache) *rig {
	t.Helper()
	ctrl := gomock.NewController(t)
	tr := newFakeTransport()
	api := mocks.NewMockAPI(ctrl)
	calls := call.New(tr, fakeMedia{}, fakePeers{}, me.UserID, me.DisplayName())
	t.Cleanup(calls.Close)
	c := NewCoordinator(Deps{
		Identity:  me,
		Transport: tr,
		API:       api,
		Cache:     cache,
		Calls:     calls,
		PageSize:  3,
	})
	return &rig{tr: tr, api: api, calls: calls, c: c}
}

// online connects the transport and lists general and random.
func (r *rig) online(t *testing.T) {
	t.Helper()
	r.c.Handle(ctx, proto.Event{Name: proto.EventConnect})
	r.api.EXPECT().ListChannels(gomock.Any()).Return([]chat.Channel{general, random}, nil)
	_, err := r.c.ListChannels(ctx)
	require.NoError(t, err)
}

func (r *rig) selectGeneral(t *testing.T, page []chat.Message) {
	t.Helper()
	r.api.EXPECT().FetchMessages(gomock.Any(), "c1", 1, 3).Return(page, nil)
	_, err := r.c.SelectChannel(ctx, "general")
	require.NoError(t, err)
}

func ids(list []chat.Message) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = m.ID
	}
	return out
}

func TestRoutesChatEvents(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)
	r.selectGeneral(t, msgs("c1", "m1", "m2"))

	// Given a push for the active channel and one for another channel
	r.c.Handle(ctx, event(t, proto.EventReceiveMessage, wireMessage("m3", "c1", "hi", t0.Add(time.Minute))))
	r.c.Handle(ctx, event(t, proto.EventReceiveMessage, wireMessage("x1", "c2", "elsewhere", t0.Add(time.Minute))))
	req.Equal([]string{"m1", "m2", "m3"}, ids(r.c.Store().Snapshot()))

	// When an edit and a delete arrive
	edited := wireMessage("m2", "c1", "changed", t0)
	at := t0.Add(time.Hour)
	edited.EditedAt = &at
	r.c.Handle(ctx, event(t, proto.EventMessageUpdated, edited))
	r.c.Handle(ctx, event(t, proto.EventMessageDeleted, "m1"))

	// Then the buffer reflects both
	snap := r.c.Store().Snapshot()
	req.Equal([]string{"m2", "m3"}, ids(snap))
	req.Equal("changed", snap[0].Content)
	req.NotNil(snap[0].EditedAt)
	req.True(snap[0].EditedAt.Equal(at))

	// Edits and deletes of unknown ids are no-ops
	r.c.Handle(ctx, event(t, proto.EventMessageDeleted, "nope"))
	r.c.Handle(ctx, event(t, proto.EventMessageUpdated, wireMessage("nope", "c1", "x", t0)))
	req.Len(r.c.Store().Snapshot(), 2)
}

func TestInvalidPayloadsAreDropped(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)
	r.selectGeneral(t, nil)

	r.c.Handle(ctx, proto.Event{Name: proto.EventReceiveMessage, Data: json.RawMessage(`{"content":"no id"}`)})
	r.c.Handle(ctx, proto.Event{Name: proto.EventOnlineUsers, Data: json.RawMessage(`not json`)})
	r.c.Handle(ctx, proto.Event{Name: proto.EventTyping})
	r.c.Handle(ctx, proto.Event{Name: "something_new", Data: json.RawMessage(`{}`)})

	req.Empty(r.c.Store().Snapshot())
	req.Empty(r.c.Presence().Online())
}

func TestPresenceAndTyping(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)
	r.selectGeneral(t, nil)

	r.c.Handle(ctx, event(t, proto.EventOnlineUsers, []proto.UserSummary{{ID: "u2", Username: "bob"}, {ID: "u1", Username: "ann"}}))
	req.True(r.c.Presence().IsOnline("u2"))
	req.Len(r.c.Presence().Online(), 2)

	r.c.Handle(ctx, event(t, proto.EventTyping, proto.TypingIn{UserID: "u2", Username: "bob", ChannelID: "c1"}))
	r.c.Handle(ctx, event(t, proto.EventTyping, proto.TypingIn{UserID: "u3", Username: "cy", ChannelID: "c2"}))
	r.c.Handle(ctx, event(t, proto.EventTyping, proto.TypingIn{UserID: "u1", Username: "ann", ChannelID: "c1"}))
	req.Equal(map[string]string{"u2": "bob"}, r.c.Presence().Typing())

	// A snapshot replaces the online set wholesale
	r.c.Handle(ctx, event(t, proto.EventOnlineUsers, []proto.UserSummary{{ID: "u3", Username: "cy"}}))
	req.False(r.c.Presence().IsOnline("u2"))

	r.c.Handle(ctx, event(t, proto.EventStopTyping, proto.TypingIn{UserID: "u2", ChannelID: "c1"}))
	req.Empty(r.c.Presence().Typing())

	// Switching channels drops whoever was typing
	r.c.Handle(ctx, event(t, proto.EventTyping, proto.TypingIn{UserID: "u2", Username: "bob", ChannelID: "c1"}))
	r.api.EXPECT().FetchMessages(gomock.Any(), "c2", 1, 3).Return(nil, nil)
	_, err := r.c.SelectChannel(ctx, "c2")
	req.NoError(err)
	req.Empty(r.c.Presence().Typing())
}

func TestReconnectRejoinsActiveChannel(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)
	r.selectGeneral(t, msgs("c1", "m1"))
	req.Equal([]string{"c1"}, r.tr.joined())

	r.c.Handle(ctx, proto.Event{Name: proto.EventDisconnect})
	req.ErrorIs(r.c.Send("hello"), chat.ErrDisconnected)
	req.ErrorIs(r.c.LoadOlder(ctx), chat.ErrDisconnected)
	req.Len(r.c.Store().Snapshot(), 1, "loaded messages stay readable")

	// A message sent while we were away shows up in the reloaded page
	r.api.EXPECT().FetchMessages(gomock.Any(), "c1", 1, 3).Return(msgs("c1", "m1", "m2"), nil)
	r.c.Handle(ctx, proto.Event{Name: proto.EventConnect})

	req.Equal([]string{"c1", "c1"}, r.tr.joined())
	req.Equal([]string{"m1", "m2"}, ids(r.c.Store().Snapshot()))
	req.NoError(r.c.Send("hello"))
}

func TestSelectWhileOfflineJoinsOnConnect(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.api.EXPECT().ListChannels(gomock.Any()).Return([]chat.Channel{general}, nil)
	_, err := r.c.ListChannels(ctx)
	req.NoError(err)

	r.api.EXPECT().FetchMessages(gomock.Any(), "c1", 1, 3).Return(nil, nil).Times(2)
	_, err = r.c.SelectChannel(ctx, "c1")
	req.NoError(err)
	req.Empty(r.tr.joined())

	r.c.Handle(ctx, proto.Event{Name: proto.EventConnect})
	req.Equal([]string{"c1"}, r.tr.joined())
}

func TestSendTyping(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)

	req.ErrorIs(r.c.SendTyping(true), chat.ErrNoActiveChannel)
	req.NoError(r.c.SendTyping(false))

	r.selectGeneral(t, nil)
	req.NoError(r.c.SendTyping(true))
	req.NoError(r.c.SendTyping(true))
	req.NoError(r.c.Send("hi"))
	req.NoError(r.c.SendTyping(false))

	req.Equal([]string{proto.EventTyping, proto.EventSendMessage, proto.EventStopTyping}, r.tr.emittedEvents())
	r.tr.mu.Lock()
	req.Equal("c1", r.tr.sent[0].payload)
	req.Equal(proto.SendMessage{ChannelID: "c1", Content: "hi"}, r.tr.sent[1].payload)
	r.tr.mu.Unlock()

	req.ErrorIs(r.c.Send("   "), chat.ErrEmptyDraft)
}

func TestUnknownChannel(t *testing.T) {
	r := newRig(t, nil)
	r.online(t)
	_, err := r.c.SelectChannel(ctx, "nope")
	require.ErrorIs(t, err, ErrUnknownChannel)
}

func TestChannelDirectoryWithCache(t *testing.T) {
	req := require.New(t)
	db, err := storage.Open(filepath.Join(t.TempDir(), "goopchat.db"))
	req.NoError(err)
	t.Cleanup(func() { db.Close() })

	r := newRig(t, db)
	r.online(t)
	r.selectGeneral(t, msgs("c1", "m1"))

	last, err := db.LastChannel()
	req.NoError(err)
	req.Equal("c1", last)

	// Renaming the active channel refreshes its read-through copy
	renamed := general
	renamed.Name = "lobby"
	r.api.EXPECT().UpdateChannel(gomock.Any(), "c1", "lobby", "").Return(renamed, nil)
	_, err = r.c.UpdateChannel(ctx, "c1", "lobby", "")
	req.NoError(err)
	active, ok := r.c.Active()
	req.True(ok)
	req.Equal("lobby", active.Name)

	// Creating appends to the list and the cache
	created := chat.Channel{ID: "c3", Name: "new", Visibility: chat.VisibilityPrivate, MemberIDs: []string{"u1"}}
	r.api.EXPECT().CreateChannel(gomock.Any(), gomock.Any()).Return(created, nil)
	_, err = r.c.CreateChannel(ctx, "new", "", chat.VisibilityPrivate, []string{"u1"})
	req.NoError(err)
	cached, err := db.Channels()
	req.NoError(err)
	req.Len(cached, 3)

	// The server goes away: the cached list is served
	r.api.EXPECT().ListChannels(gomock.Any()).Return(nil, errors.New("connection refused"))
	list, err := r.c.ListChannels(ctx)
	req.NoError(err)
	req.Len(list, 3)
	req.Equal("lobby", list[0].Name)

	// Leaving the active channel leaves no channel active
	left := renamed
	left.MemberIDs = []string{"u2"}
	r.api.EXPECT().LeaveChannel(gomock.Any(), "c1").Return(left, nil)
	_, err = r.c.LeaveChannel(ctx, "c1")
	req.NoError(err)
	_, ok = r.c.Active()
	req.False(ok)
	req.Empty(r.c.Store().ChannelID())
	last, err = db.LastChannel()
	req.NoError(err)
	req.Empty(last)

	// Late pushes for the channel we left are ignored
	r.c.Handle(ctx, event(t, proto.EventReceiveMessage, wireMessage("m9", "c1", "late", t0.Add(time.Hour))))
	req.Empty(r.c.Store().Snapshot())
}

func TestDeleteActiveChannel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCache(ctrl)

	r := newRig(t, cache)
	r.c.Handle(ctx, proto.Event{Name: proto.EventConnect})
	r.api.EXPECT().ListChannels(gomock.Any()).Return([]chat.Channel{general, random}, nil)
	cache.EXPECT().ReplaceChannels([]chat.Channel{general, random}).Return(nil)
	_, err := r.c.ListChannels(ctx)
	req.NoError(err)

	cache.EXPECT().SetLastChannel("c1").Return(nil)
	r.selectGeneral(t, nil)

	gomock.InOrder(
		r.api.EXPECT().DeleteChannel(gomock.Any(), "c1").Return(nil),
		cache.EXPECT().DeleteChannel("c1").Return(nil),
		cache.EXPECT().SetLastChannel("").Return(nil),
	)
	req.NoError(r.c.DeleteChannel(ctx, "c1"))

	_, ok := r.c.Active()
	req.False(ok)
	req.Equal([]chat.Channel{random}, r.c.Channels())
	r.tr.mu.Lock()
	req.Equal([]string{"c1"}, r.tr.leaves)
	r.tr.mu.Unlock()

	// Deleting a channel that is not active keeps the active one
	cache.EXPECT().SetLastChannel("c2").Return(nil)
	r.api.EXPECT().FetchMessages(gomock.Any(), "c2", 1, 3).Return(nil, nil)
	_, err = r.c.SelectChannel(ctx, "random")
	req.NoError(err)
	r.api.EXPECT().DeleteChannel(gomock.Any(), "c9").Return(nil)
	cache.EXPECT().DeleteChannel("c9").Return(nil)
	req.NoError(r.c.DeleteChannel(ctx, "c9"))
	active, ok := r.c.Active()
	req.True(ok)
	req.Equal("c2", active.ID)
}

func TestListChannelsWithoutCacheFails(t *testing.T) {
	r := newRig(t, nil)
	r.api.EXPECT().ListChannels(gomock.Any()).Return(nil, errors.New("boom"))
	_, err := r.c.ListChannels(ctx)
	require.ErrorContains(t, err, "boom")
}

func TestRestoreLastChannel(t *testing.T) {
	req := require.New(t)
	db, err := storage.Open(filepath.Join(t.TempDir(), "goopchat.db"))
	req.NoError(err)
	t.Cleanup(func() { db.Close() })
	req.NoError(db.SetLastChannel("c2"))

	r := newRig(t, db)
	r.online(t)
	r.api.EXPECT().FetchMessages(gomock.Any(), "c2", 1, 3).Return(msgs("c2", "r1"), nil)
	ch, ok, err := r.c.RestoreLastChannel(ctx)
	req.NoError(err)
	req.True(ok)
	req.Equal("random", ch.Name)
	req.Equal([]string{"r1"}, ids(r.c.Store().Snapshot()))

	// A remembered channel that no longer exists is skipped
	req.NoError(db.SetLastChannel("gone"))
	_, ok, err = r.c.RestoreLastChannel(ctx)
	req.NoError(err)
	req.False(ok)
}

func TestSearchScope(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)

	_, err := r.c.Search(ctx, "hi", true)
	req.ErrorIs(err, chat.ErrNoActiveChannel)

	r.api.EXPECT().Search(gomock.Any(), "hi", "").Return(msgs("c2", "s1"), nil)
	found, err := r.c.Search(ctx, "hi", false)
	req.NoError(err)
	req.Len(found, 1)

	r.selectGeneral(t, nil)
	r.api.EXPECT().Search(gomock.Any(), "hi", "c1").Return(nil, nil)
	_, err = r.c.Search(ctx, "hi", true)
	req.NoError(err)
}

func TestConnectedCallWritesHistoryLine(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)
	r.selectGeneral(t, msgs("c1", "m1"))

	r.c.Handle(ctx, event(t, proto.EventCallUser, proto.IncomingCall{
		From:     "u2",
		Name:     "bob",
		Signal:   json.RawMessage(`{"type":"offer","sdp":"o"}`),
		CallType: "audio",
	}))
	req.Equal(call.StateIncomingRinging, r.calls.Status().State)
	req.Equal(call.KindAudio, r.calls.Status().Kind)

	req.NoError(r.calls.Accept(ctx))
	req.Equal(call.StateConnected, r.calls.Status().State)

	r.c.Handle(ctx, proto.Event{Name: proto.EventEndCall})
	req.Equal(call.StateIdle, r.calls.Status().State)

	snap := r.c.Store().Snapshot()
	req.Len(snap, 2)
	last := snap[1]
	req.Equal("Voice Call ended.", last.Content)
	req.Equal("u1", last.SenderID)
	req.Equal("ann", last.SenderDisplayName)
	req.False(last.CreatedAt.Before(snap[0].CreatedAt))

	// The remote side hung up, so no end_call is echoed back
	req.Equal([]string{proto.EventAnswerCall}, r.tr.emittedEvents())
}

func TestUnansweredCallWritesNothing(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)
	r.selectGeneral(t, nil)

	req.NoError(r.c.StartCall(ctx, "u2", call.KindVideo))
	req.Equal(call.StateOutgoing, r.calls.Status().State)
	r.c.Handle(ctx, proto.Event{Name: proto.EventEndCall})

	req.Equal(call.StateIdle, r.calls.Status().State)
	req.Empty(r.c.Store().Snapshot())
	req.Equal([]string{proto.EventCallUser}, r.tr.emittedEvents())
}

func TestCallAcceptedCompletesOutgoingCall(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)
	r.selectGeneral(t, nil)
	r.c.Handle(ctx, event(t, proto.EventOnlineUsers, []proto.UserSummary{{ID: "u2", Username: "bob"}}))

	req.NoError(r.c.StartCall(ctx, "u2", call.KindVideo))
	req.Equal("bob", r.calls.Status().RemoteName)

	r.c.Handle(ctx, proto.Event{Name: proto.EventCallAccepted, Data: json.RawMessage(`{"type":"answer","sdp":"a"}`)})
	req.Equal(call.StateConnected, r.calls.Status().State)

	req.NoError(r.calls.Hangup())
	snap := r.c.Store().Snapshot()
	req.Len(snap, 1)
	req.Equal("Video Call ended.", snap[0].Content)
	req.Equal([]string{proto.EventCallUser, proto.EventEndCall}, r.tr.emittedEvents())
}

func TestLateCallEventsAreIgnored(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.online(t)

	r.c.Handle(ctx, proto.Event{Name: proto.EventCallAccepted, Data: json.RawMessage(`{"type":"answer","sdp":"a"}`)})
	r.c.Handle(ctx, proto.Event{Name: proto.EventEndCall})
	req.Equal(call.StateIdle, r.calls.Status().State)
	req.Empty(r.tr.emittedEvents())
}

func TestRunServesUntilCancelled(t *testing.T) {
	req := require.New(t)
	r := newRig(t, nil)
	r.api.EXPECT().ListChannels(gomock.Any()).Return([]chat.Channel{general}, nil)
	_, err := r.c.ListChannels(ctx)
	req.NoError(err)
	r.api.EXPECT().FetchMessages(gomock.Any(), "c1", 1, 3).Return(nil, nil).AnyTimes()
	_, err = r.c.SelectChannel(ctx, "c1")
	req.NoError(err)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- r.c.Run(runCtx) }()

	r.tr.events <- proto.Event{Name: proto.EventConnect}
	r.tr.events <- event(t, proto.EventReceiveMessage, wireMessage("m1", "c1", "hi", t0))
	req.Eventually(func() bool { return len(r.c.Store().Snapshot()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestSelectDuringReconnectsKeepsStoreOnSelection(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	api := mocks.NewMockAPI(ctrl)

	events := make(chan proto.Event)
	tr.EXPECT().Subscribe().Return((<-chan proto.Event)(events), func() {})
	tr.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	tr.EXPECT().JoinChannel(gomock.Any()).Return(nil).AnyTimes()
	tr.EXPECT().LeaveChannel(gomock.Any()).Return(nil).AnyTimes()
	api.EXPECT().ListChannels(gomock.Any()).Return([]chat.Channel{general, random}, nil)
	api.EXPECT().FetchMessages(gomock.Any(), gomock.Any(), 1, 3).DoAndReturn(
		func(_ context.Context, channelID string, _, _ int) ([]chat.Message, error) {
			return msgs(channelID, channelID+"-m1"), nil
		}).AnyTimes()

	calls := call.New(tr, fakeMedia{}, fakePeers{}, me.UserID, me.DisplayName())
	t.Cleanup(calls.Close)
	c := NewCoordinator(Deps{Identity: me, Transport: tr, API: api, Calls: calls, PageSize: 3})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	events <- proto.Event{Name: proto.EventConnect}
	_, err := c.ListChannels(ctx)
	req.NoError(err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			events <- proto.Event{Name: proto.EventDisconnect}
			events <- proto.Event{Name: proto.EventConnect}
		}
	}()
	for i := 0; i < 20; i++ {
		ref := "general"
		if i%2 == 1 {
			ref = "random"
		}
		if _, err := c.SelectChannel(ctx, ref); err != nil {
			// a concurrent reload of the same channel took over the page
			req.ErrorIs(err, chat.ErrStale)
		}
	}
	wg.Wait()

	req.Eventually(func() bool {
		snap := c.Store().Snapshot()
		return c.Store().ChannelID() == "c2" &&
			c.Presence().ChannelID() == "c2" &&
			len(snap) == 1 && snap[0].ID == "c2-m1"
	}, time.Second, 10*time.Millisecond)
	active, ok := c.Active()
	req.True(ok)
	req.Equal("c2", active.ID)

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}
