package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

// wsClient connects to the live events endpoint and collects frame types
// in a background goroutine.
type wsClient struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	frames []string
}

// connectWS dials the WebSocket endpoint with the app's API key and starts
// collecting frames. The connection is closed on test cleanup.
func connectWS(t *testing.T, app *testApp) *wsClient {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	conn, _, err := websocket.Dial(ctx, app.WSURL, &websocket.DialOptions{
		HTTPHeader: http.Header{app.Settings.APIKeyHeader: []string{app.Settings.APIKey}},
	})
	require.NoError(t, err)

	c := &wsClient{
		conn:   conn,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.readLoop(ctx)
	t.Cleanup(c.close)
	return c
}

func (c *wsClient) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var frame struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &frame) == nil {
			c.mu.Lock()
			c.frames = append(c.frames, frame.Type)
			c.mu.Unlock()
		}
	}
}

// waitForFrame blocks until a frame of the given type has been received.
func (c *wsClient) waitForFrame(t *testing.T, frameType string, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return slices.Contains(c.frames, frameType)
	}, timeout, 25*time.Millisecond, "expected a %q frame", frameType)
}

func (c *wsClient) close() {
	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
	<-c.done
}
