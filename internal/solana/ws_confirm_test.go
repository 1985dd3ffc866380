package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsServer acknowledges signatureSubscribe and then sends one notification with txErr.
func wsServer(t *testing.T, txErr interface{}) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Method != "signatureSubscribe" {
			return
		}
		conn.WriteJSON(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": 42})
		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "signatureNotification",
			"params": map[string]interface{}{
				"subscription": 42,
				"result": map[string]interface{}{
					"context": map[string]int{"slot": 5},
					"value":   map[string]interface{}{"err": txErr},
				},
			},
		})
		// wait for the client to hang up
		conn.ReadMessage()
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConfirmer_Subscription(t *testing.T) {
	c := NewConfirmer(wsServer(t, nil), NewHTTPClient("http://127.0.0.1:0"), 5*time.Second, zap.NewNop())
	require.NoError(t, c.Confirm(context.Background(), "sig"))
}

func TestConfirmer_SubscriptionReportsFailure(t *testing.T) {
	txErr := map[string]interface{}{"InstructionError": []interface{}{2, map[string]int{"Custom": 6001}}}
	c := NewConfirmer(wsServer(t, txErr), NewHTTPClient("http://127.0.0.1:0"), 5*time.Second, zap.NewNop())

	err := c.Confirm(context.Background(), "sig")
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestConfirmer_FallsBackToPolling(t *testing.T) {
	var polls atomic.Int32
	rpc := rpcServer(t, func(method string, _ []json.RawMessage) (interface{}, *RPCError) {
		assert.Equal(t, "getSignatureStatuses", method)
		if polls.Add(1) < 2 {
			return map[string]interface{}{"value": []interface{}{nil}}, nil
		}
		return map[string]interface{}{
			"value": []interface{}{map[string]interface{}{"slot": 1, "err": nil, "confirmationStatus": "finalized"}},
		}, nil
	})

	// nothing listens on port 1
	c := NewConfirmer("ws://127.0.0.1:1", NewHTTPClient(rpc.URL), 5*time.Second, zap.NewNop())
	c.pollInterval = 10 * time.Millisecond

	require.NoError(t, c.Confirm(context.Background(), "sig"))
	assert.Equal(t, int32(2), polls.Load())
}

func TestConfirmer_Timeout(t *testing.T) {
	rpc := rpcServer(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{
			"value": []interface{}{map[string]interface{}{"slot": 1, "err": nil, "confirmationStatus": "processed"}},
		}, nil
	})

	c := NewConfirmer("", NewHTTPClient(rpc.URL), 50*time.Millisecond, zap.NewNop())
	c.pollInterval = 10 * time.Millisecond

	err := c.Confirm(context.Background(), "sig")
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestReached(t *testing.T) {
	assert.True(t, reached("confirmed", "confirmed"))
	assert.True(t, reached("finalized", "confirmed"))
	assert.False(t, reached("processed", "confirmed"))
	assert.False(t, reached("", "processed"))
}
