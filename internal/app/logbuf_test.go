package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogBufferSplitsLines(t *testing.T) {
	req := require.New(t)
	b := NewLogBuffer(3)

	ch, cancel := b.Subscribe()
	defer cancel()

	_, _ = b.Write([]byte("CHAT: par"))
	req.Empty(b.Snapshot(), "partial lines wait for their newline")

	_, _ = b.Write([]byte("tial\r\n\nWS: a\nWS: b\nWS: c\n"))
	snap := b.Snapshot()
	req.Len(snap, 3)
	req.Equal("WS: a", snap[0].Msg)
	req.Equal("WS: c", snap[2].Msg)
	req.Equal("CHAT: partial", (<-ch).Msg)

	req.Equal([]string{"WS: b", "WS: c"}, []string{b.Tail(2)[0].Msg, b.Tail(2)[1].Msg})
}

func TestServeLogsJSON(t *testing.T) {
	req := require.New(t)
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("one\ntwo\nthree\n"))

	rec := httptest.NewRecorder()
	b.ServeLogsJSON(rec, httptest.NewRequest(http.MethodGet, "/logs?n=2", nil))
	req.Equal(http.StatusOK, rec.Code)

	var got []LogEntry
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	req.Len(got, 2)
	req.Equal("two", got[0].Msg)

	rec = httptest.NewRecorder()
	b.ServeLogsJSON(rec, httptest.NewRequest(http.MethodPost, "/logs", nil))
	req.Equal(http.StatusMethodNotAllowed, rec.Code)
}
