package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrTransactionFailed means the transaction landed but its execution failed.
	ErrTransactionFailed = errors.New("transaction failed on chain")
	// ErrConfirmationTimeout means no confirmation arrived in time.
	ErrConfirmationTimeout = errors.New("confirmation timed out")
)

// Confirmer waits for a transaction to reach the client's commitment level. It subscribes
// with signatureSubscribe and falls back to polling getSignatureStatuses when the
// WebSocket cannot be used.
type Confirmer struct {
	wsEndpoint   string
	rpc          *HTTPClient
	timeout      time.Duration
	pollInterval time.Duration
	dialer       *websocket.Dialer
	requestID    atomic.Uint64
	logger       *zap.Logger
}

// NewConfirmer creates a confirmer. An empty wsEndpoint disables the subscription path.
func NewConfirmer(wsEndpoint string, rpc *HTTPClient, timeout time.Duration, logger *zap.Logger) *Confirmer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Confirmer{
		wsEndpoint:   wsEndpoint,
		rpc:          rpc,
		timeout:      timeout,
		pollInterval: 2 * time.Second,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:       logger,
	}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type wsMessage struct {
	ID     uint64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
	Params *struct {
		Result struct {
			Value struct {
				Err json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
		Subscription int64 `json:"subscription"`
	} `json:"params,omitempty"`
}

// Confirm blocks until signature is confirmed, failed or the timeout elapses.
func (c *Confirmer) Confirm(ctx context.Context, signature string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.wsEndpoint != "" {
		err := c.subscribe(ctx, signature)
		if err == nil || errors.Is(err, ErrTransactionFailed) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		}
		c.logger.Warn("Signature subscription unavailable, polling instead",
			zap.String("signature", signature), zap.Error(err))
	}
	return c.poll(ctx, signature)
}

func (c *Confirmer) subscribe(ctx context.Context, signature string) error {
	conn, _, err := c.dialer.DialContext(ctx, c.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// unblock ReadJSON when the context ends
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": c.rpc.Commitment()},
		},
	}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		switch {
		case msg.ID == reqID && msg.Error != nil:
			return fmt.Errorf("signatureSubscribe: %w", msg.Error)
		case msg.Method == "signatureNotification" && msg.Params != nil:
			txErr := msg.Params.Result.Value.Err
			if len(txErr) > 0 && string(txErr) != "null" {
				return fmt.Errorf("%w: %s: %s", ErrTransactionFailed, signature, string(txErr))
			}
			return nil
		}
	}
}

func (c *Confirmer) poll(ctx context.Context, signature string) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, signature)
		if err != nil {
			c.logger.Debug("getSignatureStatuses failed", zap.String("signature", signature), zap.Error(err))
		} else if len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.Failed() {
				return fmt.Errorf("%w: %s: %s", ErrTransactionFailed, signature, string(status.Err))
			}
			if reached(status.ConfirmationStatus, c.rpc.Commitment()) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
		}
	}
}

var commitmentRank = map[string]int{"processed": 1, "confirmed": 2, "finalized": 3}

func reached(status, target string) bool {
	return status != "" && commitmentRank[status] >= commitmentRank[target]
}
