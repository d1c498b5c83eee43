package translation

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is the streaming backend: one persistent websocket connection,
// one JSON request and one JSON response per frame. Translation stays
// strictly sequential, so the connection never carries more than one
// in-flight exchange and responses cannot be misattributed.
type WSClient struct {
	config Config

	mu   sync.Mutex
	conn *websocket.Conn

	statsMu         sync.RWMutex
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	reconnects      uint64
	avgResponseTime time.Duration
}

// wsRequest is the frame payload sent over the socket. Audio travels as
// base64 PCM inside the JSON envelope to keep the exchange a single message.
type wsRequest struct {
	RequestID      string `json:"request_id"`
	Sequence       uint64 `json:"sequence"`
	SampleRate     int    `json:"sample_rate"`
	Channels       int    `json:"channels"`
	InputLanguage  string `json:"input_language"`
	OutputLanguage string `json:"output_language"`
	Audio          string `json:"audio"`
}

// wsResponse mirrors Result with the request id echoed back.
type wsResponse struct {
	RequestID string       `json:"request_id"`
	Status    ResultStatus `json:"status"`
	Text      string       `json:"text,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// NewWSClient creates the websocket translation client and establishes the
// initial connection so credential problems surface at pipeline start.
func NewWSClient(config Config) (*WSClient, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	config.applyDefaults()

	c := &WSClient{config: config}
	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

// connect dials the backend. Caller must hold c.mu or be the constructor.
func (c *WSClient) connect() error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.config.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: c.config.Timeout}
	conn, _, err := dialer.Dial(c.config.Endpoint, header)
	if err != nil {
		return fmt.Errorf("failed to connect to translation backend: %w", err)
	}

	c.conn = conn
	return nil
}

// Translate performs one request/response exchange. A broken connection is
// redialed once before the call is reported as failed.
func (c *WSClient) Translate(ctx context.Context, req *Request) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.incrementTotal()
	startTime := time.Now()

	result, err := c.exchange(ctx, req)
	if err != nil {
		// One reconnect attempt, then give up on this frame.
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		if dialErr := c.connect(); dialErr != nil {
			c.incrementFailed()
			return nil, fmt.Errorf("websocket exchange failed (%v) and reconnect failed: %w", err, dialErr)
		}
		c.incrementReconnects()

		result, err = c.exchange(ctx, req)
		if err != nil {
			c.incrementFailed()
			return nil, err
		}
	}

	c.recordSuccess(time.Since(startTime))
	return result, nil
}

func (c *WSClient) exchange(ctx context.Context, req *Request) (*Result, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("websocket not connected")
	}

	deadline := time.Now().Add(c.config.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	payload := wsRequest{
		RequestID:      req.RequestID,
		Sequence:       req.Sequence,
		SampleRate:     req.SampleRate,
		Channels:       req.Channels,
		InputLanguage:  req.InputLanguage,
		OutputLanguage: req.OutputLanguage,
		Audio:          base64.StdEncoding.EncodeToString(pcmBytes(req.Samples)),
	}

	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(payload); err != nil {
		return nil, fmt.Errorf("failed to send frame: %w", err)
	}

	c.conn.SetReadDeadline(deadline)
	var resp wsResponse
	if err := c.conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.RequestID != "" && resp.RequestID != req.RequestID {
		return nil, fmt.Errorf("backend answered request %q, expected %q", resp.RequestID, req.RequestID)
	}

	result := &Result{Status: resp.Status, Text: resp.Text, Reason: resp.Reason}
	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *WSClient) incrementTotal() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.totalRequests++
}

func (c *WSClient) incrementFailed() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.failedRequests++
}

func (c *WSClient) incrementReconnects() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.reconnects++
}

func (c *WSClient) recordSuccess(responseTime time.Duration) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	c.successRequests++
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics. Reconnects are reported in the
// retry column.
func (c *WSClient) GetStats() ClientStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.reconnects,
		AvgResponseTime: c.avgResponseTime,
	}
}

// Close closes the websocket connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}
