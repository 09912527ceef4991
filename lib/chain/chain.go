// Package chain is the client of the EOS node HTTP chain API. Calls made on behalf of API consumers return the node's
// reply verbatim; the typed calls serve the mirror.
package chain

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tarancss/eosapi/lib/chain/types"
	"github.com/tarancss/eosapi/lib/metrics"
	"github.com/tarancss/eosapi/lib/util"
)

// Chain API paths.
const (
	PathGetInfo         = "/v1/chain/get_info"
	PathGetBlock        = "/v1/chain/get_block"
	PathGetAccount      = "/v1/chain/get_account"
	PathGetRequiredKeys = "/v1/chain/get_required_keys"
	PathPushTransaction = "/v1/chain/push_transaction"
)

// maxBody bounds the replies read from the node.
const maxBody = 16 << 20

// Errors returned
var (
	ErrUnavailable = errors.New("EOS node unavailable")
	ErrTimeout     = errors.New("EOS node timed out")
)

// StatusError is returned by the typed calls when the node replies with a non 2xx status.
type StatusError struct {
	Call   string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Call, e.Status)
}

// Response is a node reply.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// Client calls one EOS node.
type Client struct {
	node    string
	timeout time.Duration
	hc      *http.Client
}

// New returns a client of the node at uri (ie. http://localhost:8888). Every call is bounded by timeout.
func New(uri string, timeout time.Duration) *Client {
	return &Client{
		node:    uri,
		timeout: timeout,
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Node returns the node uri.
func (c *Client) Node() string {
	return c.node
}

// Call sends body (nil, raw JSON bytes or a value to encode) to path. Bodies are POSTed, nil bodies use GET.
func (c *Client) Call(ctx context.Context, path string, body interface{}) (*Response, error) {
	call := path[len("/v1/chain/"):]

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)

		defer cancel()
	}

	method, reader, err := encode(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.node+path, reader)
	if err != nil {
		return nil, fmt.Errorf("cannot build %s request: %w", call, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.UpstreamTotal.WithLabelValues(call, "error").Inc()

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrTimeout, call, err)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, call, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.UpstreamTotal.WithLabelValues(call, "error").Inc()

		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrTimeout, call, err)
		}

		return nil, fmt.Errorf("%w: reading %s reply: %w", ErrUnavailable, call, err)
	}

	metrics.UpstreamTotal.WithLabelValues(call, strconv.Itoa(resp.StatusCode)).Inc()

	return &Response{Status: resp.StatusCode, Body: b}, nil
}

func encode(body interface{}) (string, io.Reader, error) {
	switch t := body.(type) {
	case nil:
		return http.MethodGet, nil, nil
	case []byte:
		return http.MethodPost, bytes.NewReader(t), nil
	case json.RawMessage:
		return http.MethodPost, bytes.NewReader(t), nil
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("cannot encode request body: %w", err)
	}

	return http.MethodPost, bytes.NewReader(b), nil
}

// GetInfo proxies get_info.
func (c *Client) GetInfo(ctx context.Context) (*Response, error) {
	return c.Call(ctx, PathGetInfo, nil)
}

// GetAccount proxies get_account.
func (c *Client) GetAccount(ctx context.Context, name string) (*Response, error) {
	return c.Call(ctx, PathGetAccount, map[string]string{"account_name": name})
}

// GetRequiredKeys proxies get_required_keys with the caller's body.
func (c *Client) GetRequiredKeys(ctx context.Context, body []byte) (*Response, error) {
	return c.Call(ctx, PathGetRequiredKeys, body)
}

// PushTransaction completes r with a header referencing the current head block and pushes it.
func (c *Client) PushTransaction(ctx context.Context, r types.PushRequest) (*Response, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := NewTransaction(info, r)
	if err != nil {
		return nil, err
	}

	return c.Call(ctx, PathPushTransaction, tx)
}

// NewTransaction builds the transaction pushed for r: the reference block is the head block and the expiration its
// time. The scope is r.Scope, or every contract and authorizing account of the actions, sorted without repetitions.
func NewTransaction(info *types.Info, r types.PushRequest) (*types.Transaction, error) {
	id, err := hex.DecodeString(info.HeadBlockID)
	if err != nil || len(id) < 12 { //nolint:gomnd // prefix is bytes 8 to 12
		return nil, types.ErrNoHeadBlock
	}

	headTime, err := types.ParseTime(info.HeadBlockTime)
	if err != nil {
		return nil, err
	}

	scope := r.Scope
	if len(scope) == 0 {
		for _, a := range r.Actions {
			scope = append(scope, a.Contract())
			for _, auth := range a.Authorization {
				scope = append(scope, auth.Name())
			}
		}
	}

	return &types.Transaction{
		RefBlockNum:    uint16(info.HeadBlockNum & 0xffff), //nolint:gosec // masked
		RefBlockPrefix: binary.LittleEndian.Uint32(id[8:12]),
		Expiration:     headTime.Format(types.TimeLayout),
		Scope:          util.UniqueSorted(scope),
		Actions:        r.Actions,
		Signatures:     r.Signatures,
	}, nil
}

// Info returns the decoded get_info reply.
func (c *Client) Info(ctx context.Context) (*types.Info, error) {
	var info types.Info
	if err := c.typed(ctx, PathGetInfo, nil, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// GetBlock returns block num, or types.ErrNoBlock when the node does not have it yet.
func (c *Client) GetBlock(ctx context.Context, num uint64) (*types.Block, error) {
	var b types.Block

	err := c.typed(ctx, PathGetBlock, map[string]string{"block_num_or_id": strconv.FormatUint(num, 10)}, &b)

	var se *StatusError
	if errors.As(err, &se) {
		return nil, fmt.Errorf("%w: block %d: %w", types.ErrNoBlock, num, err)
	}

	if err != nil {
		return nil, err
	}

	return &b, nil
}

// Account returns the decoded get_account reply.
func (c *Client) Account(ctx context.Context, name string) (*types.Account, error) {
	var a types.Account
	if err := c.typed(ctx, PathGetAccount, map[string]string{"account_name": name}, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

func (c *Client) typed(ctx context.Context, path string, body, v interface{}) error {
	resp, err := c.Call(ctx, path, body)
	if err != nil {
		return err
	}

	if !resp.OK() {
		return &StatusError{Call: path[len("/v1/chain/"):], Status: resp.Status, Body: resp.Body}
	}

	if err = json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("cannot decode %s reply: %w", path, err)
	}

	return nil
}
