package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/engine"
)

func dialTestServer(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) CellUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var u CellUpdate
	require.NoError(t, conn.ReadJSON(&u))
	return u
}

func newServer(t *testing.T) *Server {
	t.Helper()
	sheet, err := engine.New(5, 5)
	require.NoError(t, err)
	return NewServer(sheet)
}

func TestUpdateCell(t *testing.T) {
	srv := newServer(t)
	conn := dialTestServer(t, srv)

	require.NoError(t, conn.WriteJSON(UpdateRequest{Type: "update_cell", ID: "A1", Expr: "2"}))
	u := readUpdate(t, conn)
	assert.Equal(t, "cell_updated", u.Type)
	assert.Equal(t, "A1", u.ID)
	assert.Equal(t, "2", u.Display)
	assert.Equal(t, "ok", u.Status)
}

func TestUpdateBroadcastsDependents(t *testing.T) {
	srv := newServer(t)
	conn := dialTestServer(t, srv)

	require.NoError(t, conn.WriteJSON(UpdateRequest{Type: "update_cell", ID: "A1", Expr: "2"}))
	readUpdate(t, conn)
	require.NoError(t, conn.WriteJSON(UpdateRequest{Type: "update_cell", ID: "B1", Expr: "A1+1"}))
	readUpdate(t, conn)

	require.NoError(t, conn.WriteJSON(UpdateRequest{Type: "update_cell", ID: "A1", Expr: "5"}))
	first := readUpdate(t, conn)
	assert.Equal(t, "A1", first.ID)
	assert.Equal(t, "5", first.Display)
	second := readUpdate(t, conn)
	assert.Equal(t, "B1", second.ID)
	assert.Equal(t, "6", second.Display)
	assert.Empty(t, second.Status)
}

func TestRejectedUpdateCarriesStatus(t *testing.T) {
	srv := newServer(t)
	conn := dialTestServer(t, srv)

	require.NoError(t, conn.WriteJSON(UpdateRequest{Type: "update_cell", ID: "A1", Expr: "A1"}))
	u := readUpdate(t, conn)
	assert.Equal(t, "circular ref", u.Status)
	assert.Empty(t, u.Display)

	require.NoError(t, conn.WriteJSON(UpdateRequest{Type: "update_cell", ID: "!!", Expr: "1"}))
	u = readUpdate(t, conn)
	assert.Equal(t, "invalid cell", u.Status)
}

func TestSnapshotReplay(t *testing.T) {
	srv := newServer(t)
	conn := dialTestServer(t, srv)
	require.NoError(t, conn.WriteJSON(UpdateRequest{Type: "update_cell", ID: "C3", Expr: "42"}))
	readUpdate(t, conn)

	// A late joiner gets the non-empty cells on connect.
	late := dialTestServer(t, srv)
	u := readUpdate(t, late)
	assert.Equal(t, "C3", u.ID)
	assert.Equal(t, "42", u.Display)
}
