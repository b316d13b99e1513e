package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Client) call(method string, req, resp any) error {
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Create starts a reporter on the daemon and returns its handle.
func (c *Client) Create() (uint64, error) {
	var resp CreateResponse
	if err := c.call("Create", CreateRequest{}, &resp); err != nil {
		return 0, err
	}
	return resp.Handle, nil
}

// Destroy shuts the reporter down after its pending reports get a final attempt.
func (c *Client) Destroy(handle uint64) error {
	var resp AckResponse
	return c.call("Destroy", HandleRequest{Handle: handle}, &resp)
}

// StartNewSession notifies the reporter that a new online session began.
func (c *Client) StartNewSession(handle uint64) error {
	var resp AckResponse
	return c.call("StartNewSession", HandleRequest{Handle: handle}, &resp)
}

// PushReplayData appends a chunk to the reporter's replay buffer.
func (c *Client) PushReplayData(handle uint64, data []byte) error {
	var resp AckResponse
	return c.call("PushReplayData", PushReplayDataRequest{Handle: handle, Data: data}, &resp)
}

// LogReport queues a finished game for delivery.
func (c *Client) LogReport(req LogReportRequest) error {
	var resp AckResponse
	return c.call("LogReport", req, &resp)
}

// ReportMatchStatus sends a status ping; the result is only meaningful when
// Background is false.
func (c *Client) ReportMatchStatus(req MatchStatusRequest) (bool, error) {
	var resp MatchStatusResponse
	if err := c.call("ReportMatchStatus", req, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

// ReportCompletion queues a match completion ping.
func (c *Client) ReportCompletion(handle uint64, matchID, endMode string) error {
	var resp AckResponse
	return c.call("ReportCompletion", CompletionRequest{Handle: handle, MatchID: matchID, EndMode: endMode}, &resp)
}

// ReportAbandonment queues a match abandonment ping.
func (c *Client) ReportAbandonment(handle uint64, matchID string) error {
	var resp AckResponse
	return c.call("ReportAbandonment", AbandonmentRequest{Handle: handle, MatchID: matchID}, &resp)
}

// IsoState retrieves the game image verification state.
func (c *Client) IsoState(handle uint64) (*IsoStateResponse, error) {
	var resp IsoStateResponse
	if err := c.call("IsoState", HandleRequest{Handle: handle}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History retrieves recent delivery outcomes.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call("History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
