package server

import (
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agridetect/internal/session"
)

func wsURL(httpURL, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

func TestChatOverWebsocket(t *testing.T) {
	srv, _ := newTestServer(t)
	id := runPipeline(t, srv)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/api/sessions/"+id+"/chat/ws"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsQuestion{Question: "How often should I spray?"}))
	var reply wsAnswer
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Water at the base.", reply.Answer)
	assert.Empty(t, reply.Error)

	// A second question reuses the same connection.
	require.NoError(t, conn.WriteJSON(wsQuestion{Question: "Anything else?"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "Water at the base.", reply.Answer)
}

func TestChatWebsocketBeforeDiagnosis(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/sessions", nil, nil)
	snap := decodeBody[session.Snapshot](t, resp)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/api/sessions/"+snap.ID+"/chat/ws"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsQuestion{Question: "q"}))
	var reply wsAnswer
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Empty(t, reply.Answer)
	assert.Equal(t, "no diagnosis available yet", reply.Error)
}

func TestChatWebsocketUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "/api/sessions/nope/chat/ws"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
