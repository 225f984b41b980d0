package irisfast

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type fakeIris struct {
	mu       sync.Mutex
	replies  []ReplyRequest
	headers  []string
	failures int
	status   int
}

func (f *fakeIris) handle(ctx *fasthttp.RequestCtx) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch string(ctx.Path()) {
	case "/config":
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"port":3000,"polling_speed":100,"message_rate":50,"web_server_endpoint":"http://bot"}`)
	case "/reply":
		f.headers = append(f.headers, string(ctx.Request.Header.Peek("X-User-Id")))
		if f.failures > 0 {
			f.failures--
			ctx.SetStatusCode(f.status)
			return
		}
		var req ReplyRequest
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		f.replies = append(f.replies, req)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func newTestClient(t *testing.T, iris *fakeIris, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: iris.handle}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	base := []Option{WithHTTPClient(hc), WithTimeout(2 * time.Second)}
	return NewClient("http://iris.local/", append(base, opts...)...)
}

func TestClientSendMessageAndImage(t *testing.T) {
	iris := &fakeIris{}
	c := newTestClient(t, iris, WithHeaderProvider(func() map[string]string {
		return map[string]string{"X-User-Id": "bot", "X-Empty": " "}
	}))
	ctx := context.Background()
	if err := c.SendMessage(ctx, "room-1", "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := c.SendImage(ctx, "room-1", "aGk="); err != nil {
		t.Fatalf("SendImage: %v", err)
	}
	iris.mu.Lock()
	defer iris.mu.Unlock()
	if len(iris.replies) != 2 {
		t.Fatalf("replies = %+v", iris.replies)
	}
	if iris.replies[0] != (ReplyRequest{Type: "text", Room: "room-1", Data: "hello"}) {
		t.Fatalf("text reply = %+v", iris.replies[0])
	}
	if iris.replies[1].Type != "image" || iris.replies[1].Data != "aGk=" {
		t.Fatalf("image reply = %+v", iris.replies[1])
	}
	if iris.headers[0] != "bot" {
		t.Fatalf("header not forwarded: %v", iris.headers)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	iris := &fakeIris{failures: 2, status: fasthttp.StatusBadGateway}
	c := newTestClient(t, iris, WithRetry(3))
	if err := c.SendMessage(context.Background(), "room", "retry me"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	iris.mu.Lock()
	defer iris.mu.Unlock()
	if len(iris.headers) != 3 || len(iris.replies) != 1 {
		t.Fatalf("attempts = %d, replies = %d", len(iris.headers), len(iris.replies))
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	iris := &fakeIris{failures: 5, status: fasthttp.StatusBadRequest}
	c := newTestClient(t, iris, WithRetry(3))
	if err := c.SendMessage(context.Background(), "room", "x"); err == nil {
		t.Fatalf("expected error")
	}
	iris.mu.Lock()
	defer iris.mu.Unlock()
	if len(iris.headers) != 1 {
		t.Fatalf("4xx should not retry, attempts = %d", len(iris.headers))
	}
}

func TestClientGetConfig(t *testing.T) {
	c := newTestClient(t, &fakeIris{})
	cfg, err := c.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.Port != 3000 || cfg.WebserverEndpoint != "http://bot" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestHTTPEgress(t *testing.T) {
	iris := &fakeIris{}
	c := newTestClient(t, iris)
	out := NewEgress("HTTP", false, c, nil, nil)
	if err := out.SendText(context.Background(), "r", "via egress"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	auto := NewEgress("auto", false, c, NewWebSocket("ws://unused", 0, 0), nil)
	if err := auto.SendImage(context.Background(), "r", "aW1n"); err != nil {
		t.Fatalf("auto SendImage should fall back to http: %v", err)
	}
	iris.mu.Lock()
	defer iris.mu.Unlock()
	if len(iris.replies) != 2 || iris.replies[1].Type != "image" {
		t.Fatalf("replies = %+v", iris.replies)
	}
}

func TestParseTransportAndBackoff(t *testing.T) {
	if ParseTransport(" WS ") != "ws" || ParseTransport("auto") != "auto" || ParseTransport("smoke") != "http" {
		t.Fatalf("unexpected transport parsing")
	}
	if backoffDuration(0) != 100*time.Millisecond || backoffDuration(3) != 400*time.Millisecond || backoffDuration(10) != 3200*time.Millisecond {
		t.Fatalf("unexpected backoff")
	}
}

func TestMessageIdentity(t *testing.T) {
	name := "kim"
	msg := &Message{Sender: &name, JSON: &MessageJSON{UserID: "42"}}
	if msg.UserID() != "42" || msg.SenderName() != "kim" {
		t.Fatalf("identity = %s/%s", msg.UserID(), msg.SenderName())
	}
	bare := &Message{Sender: &name}
	if bare.UserID() != "kim" {
		t.Fatalf("user id should fall back to sender")
	}
	var none *Message
	if none.UserID() != "" || none.SenderName() != "" {
		t.Fatalf("nil message identity should be empty")
	}
}
