// Package onebot implements a OneBot v11 forward WebSocket client.
package onebot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/zephyrtronium/hitori/message"
)

// Service is the service name of messages received through OneBot.
const Service = "onebot"

// Client is a connection to a OneBot implementation.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	seq     atomic.Int64
	mu      sync.Mutex
	pending map[string]chan response
	// done is closed when the read loop exits.
	done chan struct{}
}

// frame is the part of every frame needed to classify it.
type frame struct {
	PostType string         `json:"post_type"`
	Echo     jsontext.Value `json:"echo"`
}

// event is a message event.
type event struct {
	Time        int64     `json:"time"`
	SelfID      int64     `json:"self_id"`
	MessageType string    `json:"message_type"`
	SubType     string    `json:"sub_type"`
	MessageID   int64     `json:"message_id"`
	UserID      int64     `json:"user_id"`
	GroupID     int64     `json:"group_id"`
	Message     []segment `json:"message"`
	Sender      sender    `json:"sender"`
}

type sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
}

type segment struct {
	Type string      `json:"type"`
	Data segmentData `json:"data"`
}

type segmentData struct {
	Text string `json:"text,omitempty"`
	// ID is the referenced message for reply segments. Implementations
	// disagree on whether it is a string or a number.
	ID jsontext.Value `json:"id,omitzero"`
}

type request struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo"`
}

type sendParams struct {
	MessageType string    `json:"message_type"`
	UserID      int64     `json:"user_id,omitzero"`
	GroupID     int64     `json:"group_id,omitzero"`
	Message     []segment `json:"message"`
}

type response struct {
	Status  string         `json:"status"`
	Retcode int            `json:"retcode"`
	Data    jsontext.Value `json:"data"`
	Message string         `json:"message"`
	Wording string         `json:"wording"`
}

// Dial connects to the OneBot forward WebSocket at url.
// If token is not empty, it is sent as a bearer token.
func Dial(ctx context.Context, url, token string, log *slog.Logger) (*Client, error) {
	var opts websocket.DialOptions
	if token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + token}}
	}
	log.DebugContext(ctx, "dial OneBot", slog.String("url", url))
	conn, resp, err := websocket.Dial(ctx, url, &opts)
	if err != nil {
		if resp != nil {
			b := make([]byte, 1024)
			n, _ := resp.Body.Read(b)
			return nil, fmt.Errorf("couldn't connect to OneBot: %w (%s)", err, b[:n])
		}
		return nil, fmt.Errorf("couldn't connect to OneBot: %w", err)
	}
	// Group message events with long content can exceed the default limit.
	conn.SetReadLimit(1 << 20)
	c := &Client{
		conn:    conn,
		log:     log,
		pending: make(map[string]chan response),
		done:    make(chan struct{}),
	}
	return c, nil
}

// Run reads frames until the connection closes or ctx is canceled. Message
// events are converted and sent to recv. Run must be running for Reply to
// receive responses.
func (c *Client) Run(ctx context.Context, recv chan<- *message.Received) error {
	defer close(c.done)
	for {
		_, b, err := c.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("couldn't read from OneBot: %w", err)
		}
		var f frame
		if err := json.Unmarshal(b, &f); err != nil {
			c.log.WarnContext(ctx, "couldn't decode OneBot frame", slog.Any("err", err), slog.String("frame", string(b)))
			continue
		}
		switch {
		case len(f.Echo) != 0:
			c.resolve(ctx, idString(f.Echo), b)
		case f.PostType == "message":
			var evt event
			if err := json.Unmarshal(b, &evt); err != nil {
				// Most likely the implementation is configured to post
				// messages as CQ code strings.
				c.log.WarnContext(ctx, "couldn't decode OneBot message event", slog.Any("err", err))
				continue
			}
			msg := evt.received()
			select {
			case recv <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		case f.PostType == "meta_event":
			c.log.DebugContext(ctx, "OneBot meta event", slog.String("frame", string(b)))
		default:
			c.log.DebugContext(ctx, "ignoring OneBot event", slog.String("post_type", f.PostType))
		}
	}
}

func (c *Client) resolve(ctx context.Context, echo string, b []byte) {
	c.mu.Lock()
	ch := c.pending[echo]
	delete(c.pending, echo)
	c.mu.Unlock()
	if ch == nil {
		c.log.WarnContext(ctx, "OneBot response with unknown echo", slog.String("echo", echo))
		return
	}
	var r response
	if err := json.Unmarshal(b, &r); err != nil {
		r = response{Status: "failed", Retcode: -1, Message: err.Error()}
	}
	// ch is buffered and receives only once.
	ch <- r
}

// call performs an action and waits for its response.
func (c *Client) call(ctx context.Context, action string, params any) (jsontext.Value, error) {
	echo := strconv.FormatInt(c.seq.Add(1), 10)
	ch := make(chan response, 1)
	c.mu.Lock()
	c.pending[echo] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, echo)
		c.mu.Unlock()
	}()
	b, err := json.Marshal(request{Action: action, Params: params, Echo: echo})
	if err != nil {
		return nil, fmt.Errorf("couldn't encode %s: %w", action, err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, b); err != nil {
		return nil, fmt.Errorf("couldn't send %s: %w", action, err)
	}
	select {
	case r := <-ch:
		if r.Status != "ok" {
			return nil, fmt.Errorf("%s failed with retcode %d: %s", action, r.Retcode, r.Message+r.Wording)
		}
		return r.Data, nil
	case <-c.done:
		return nil, errors.New("OneBot connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply sends text to the conversation msg arrived in, quoting msg.
// It returns the ID of the sent message.
func (c *Client) Reply(ctx context.Context, msg *message.Received, text string) (string, error) {
	to, err := strconv.ParseInt(msg.To, 10, 64)
	if err != nil {
		return "", fmt.Errorf("couldn't parse destination %q: %w", msg.To, err)
	}
	p := sendParams{Message: make([]segment, 0, 2)}
	switch msg.Kind {
	case message.Group:
		p.MessageType, p.GroupID = "group", to
	default:
		p.MessageType, p.UserID = "private", to
	}
	if msg.ID != "" {
		ref, _ := json.Marshal(msg.ID)
		p.Message = append(p.Message, segment{Type: "reply", Data: segmentData{ID: ref}})
	}
	p.Message = append(p.Message, segment{Type: "text", Data: segmentData{Text: text}})
	data, err := c.call(ctx, "send_msg", p)
	if err != nil {
		return "", err
	}
	var r struct {
		MessageID jsontext.Value `json:"message_id"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("couldn't decode send_msg result %q: %w", data, err)
	}
	return idString(r.MessageID), nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (e *event) received() *message.Received {
	m := message.Received{
		ID:        strconv.FormatInt(e.MessageID, 10),
		Sender:    strconv.FormatInt(e.UserID, 10),
		Name:      e.Sender.Card,
		Timestamp: e.Time * 1000,
		Service:   Service,
		Segments:  make([]message.Segment, 0, len(e.Message)),
	}
	if m.Name == "" {
		m.Name = e.Sender.Nickname
	}
	if e.MessageType == "group" {
		m.Kind = message.Group
		m.Group = strconv.FormatInt(e.GroupID, 10)
		m.To = m.Group
		m.Elevated = e.Sender.Role == "owner" || e.Sender.Role == "admin"
	} else {
		m.Kind = message.Private
		m.To = m.Sender
	}
	for _, s := range e.Message {
		switch s.Type {
		case "text":
			m.Segments = append(m.Segments, message.Segment{Kind: message.Text, Text: s.Data.Text})
		case "reply":
			m.Segments = append(m.Segments, message.Segment{Kind: message.Reply, Ref: idString(s.Data.ID)})
		default:
			m.Segments = append(m.Segments, message.Segment{Kind: message.Other, Text: s.Type})
		}
	}
	return &m
}

// idString formats an ID that may be encoded as a JSON string or number.
func idString(v jsontext.Value) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}
