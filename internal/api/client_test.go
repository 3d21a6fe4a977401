package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petervdpas/goopchat/internal/chat"
)

type recorded struct {
	method string
	uri    string
	auth   string
	body   string
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{r.Method, r.URL.RequestURI(), r.Header.Get("Authorization"), string(body)})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "tok", time.Second), &calls
}

func TestClient_FetchMessages(t *testing.T) {
	req := require.New(t)
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"_id":"m2","channel":"c1","sender":{"_id":"u1","username":"ann"},"content":"two","timestamp":"2024-05-01T12:00:02Z"},
			{"_id":"m1","channel":"c1","sender":{"_id":"u2","username":"bob"},"content":"one","timestamp":"2024-05-01T12:00:01Z","editedAt":"2024-05-01T12:05:00Z"}
		]`)
	})

	msgs, err := c.FetchMessages(context.Background(), "c1", 2, 50)
	req.NoError(err)
	req.Len(msgs, 2)
	req.Equal("m2", msgs[0].ID)
	req.Equal("ann", msgs[0].SenderDisplayName)
	req.Equal("c1", msgs[1].ChannelID)
	req.NotNil(msgs[1].EditedAt)

	req.Equal("GET", (*calls)[0].method)
	req.Equal("/messages/c1?limit=50&page=2", (*calls)[0].uri)
	req.Equal("Bearer tok", (*calls)[0].auth)
}

func TestClient_FetchMessagesRejectsInvalidPayload(t *testing.T) {
	req := require.New(t)
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"channel":"c1","sender":{"_id":"u1"}}]`)
	})

	_, err := c.FetchMessages(context.Background(), "c1", 1, 50)
	req.ErrorContains(err, "item 0")
}

func TestClient_HTTPError(t *testing.T) {
	req := require.New(t)
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	err := c.EditMessage(context.Background(), "m1", "x")
	var herr *HTTPError
	req.True(errors.As(err, &herr))
	req.Equal(http.StatusForbidden, herr.Status)
	req.Equal("forbidden", herr.Body)
	req.Equal("/messages/m1", herr.Path)
}

func TestClient_ChannelRoutes(t *testing.T) {
	req := require.New(t)
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			io.WriteString(w, `[{"_id":"c1","name":"general","type":"public","members":[{"_id":"u1"},{"_id":"u1"}]}]`)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			io.WriteString(w, `{"_id":"c2","name":"ops","type":"private","members":[{"_id":"u1"}]}`)
		}
	})
	ctx := context.Background()

	list, err := c.ListChannels(ctx)
	req.NoError(err)
	req.Equal([]chat.Channel{{ID: "c1", Name: "general", Visibility: chat.VisibilityPublic, MemberIDs: []string{"u1"}}}, list)

	ch, err := c.CreateChannel(ctx, CreateChannelRequest{Name: "ops", Type: "private"})
	req.NoError(err)
	req.Equal(chat.VisibilityPrivate, ch.Visibility)

	_, err = c.JoinChannel(ctx, "c2")
	req.NoError(err)
	_, err = c.LeaveChannel(ctx, "c2")
	req.NoError(err)
	_, err = c.UpdateChannel(ctx, "c2", "ops2", "desc")
	req.NoError(err)
	req.NoError(c.DeleteChannel(ctx, "c2"))

	var got []string
	for _, call := range *calls {
		got = append(got, call.method+" "+call.uri)
	}
	req.Equal([]string{
		"GET /channels",
		"POST /channels",
		"POST /channels/c2/join",
		"POST /channels/c2/leave",
		"PUT /channels/c2",
		"DELETE /channels/c2",
	}, got)

	var create map[string]any
	req.NoError(json.Unmarshal([]byte((*calls)[1].body), &create))
	req.Equal("ops", create["name"])
	req.Equal([]any{}, create["members"])
	req.JSONEq(`{"name":"ops2","description":"desc"}`, (*calls)[4].body)
}

func TestClient_SearchAndUsers(t *testing.T) {
	req := require.New(t)
	c, calls := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/users" {
			io.WriteString(w, `[{"_id":"u1","username":"ann"},{"_id":"u2","username":"bob"}]`)
			return
		}
		io.WriteString(w, `[]`)
	})
	ctx := context.Background()

	msgs, err := c.Search(ctx, "hello world", "c1")
	req.NoError(err)
	req.Empty(msgs)
	req.Equal("/messages/search?channelId=c1&query=hello+world", (*calls)[0].uri)

	users, err := c.Users(ctx)
	req.NoError(err)
	req.Len(users, 2)
	req.Equal("bob", users[1].Username)
}
