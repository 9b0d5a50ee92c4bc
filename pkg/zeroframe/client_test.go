package zeroframe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/morezero/zeroframe/pkg/bridge"
	"github.com/morezero/zeroframe/pkg/reply"
)

const clientTestPrefix = "zeroframe:client_test"

// fakeHost answers commands from a fixed table and records what it was sent.
type fakeHost struct {
	mu      sync.Mutex
	replies map[string]reply.Reply
	errs    map[string]error
	calls   []string
}

func (h *fakeHost) invoke(_ context.Context, cmd string, params []any) (reply.Reply, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return reply.Null(), err
	}
	h.mu.Lock()
	h.calls = append(h.calls, cmd+" "+string(data))
	h.mu.Unlock()

	if err := h.errs[cmd]; err != nil {
		return reply.Null(), err
	}
	r, ok := h.replies[cmd]
	if !ok {
		return reply.String(`{"error":"Unknown command: ` + cmd + `"}`), nil
	}
	return r, nil
}

func (h *fakeHost) lastCall(t *testing.T) string {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		t.Fatalf("%s - no call reached the host", clientTestPrefix)
	}
	return h.calls[len(h.calls)-1]
}

func newTestClient(replies map[string]reply.Reply) (*Client, *fakeHost, *bridge.CallbackBridge) {
	host := &fakeHost{replies: replies, errs: map[string]error{}}
	b := bridge.NewCallbackBridge(host.invoke, nil)
	return NewClient(b), host, b
}

func TestClient_Calls(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		replies  map[string]reply.Reply
		run      func(c *Client) error
		wantCall string
	}{
		{
			name:     "site publish defaults",
			replies:  map[string]reply.Reply{"sitePublish": reply.String("ok")},
			run:      func(c *Client) error { return c.SitePublish(ctx, SignOptions{}, true) },
			wantCall: `sitePublish ["stored","content.json",true]`,
		},
		{
			name:    "site sign explicit",
			replies: map[string]reply.Reply{"siteSign": reply.String("ok")},
			run: func(c *Client) error {
				return c.SiteSign(ctx, SignOptions{PrivateKey: "5Kxyz", InnerPath: "data/users/content.json"}, false)
			},
			wantCall: `siteSign ["5Kxyz","data/users/content.json",false]`,
		},
		{
			name:     "file write base64",
			replies:  map[string]reply.Reply{"fileWrite": reply.String("ok")},
			run:      func(c *Client) error { return c.FileWriteString(ctx, "data/a.txt", "hello") },
			wantCall: `fileWrite ["data/a.txt","aGVsbG8="]`,
		},
		{
			name:     "file need",
			replies:  map[string]reply.Reply{"fileNeed": reply.String("ok")},
			run:      func(c *Client) error { return c.FileNeed(ctx, "data/big.mp4", 30) },
			wantCall: `fileNeed ["data/big.mp4",30]`,
		},
		{
			name:    "optional file list defaults",
			replies: map[string]reply.Reply{"optionalFileList": raw(`[]`)},
			run: func(c *Client) error {
				_, err := c.OptionalFileList(ctx, OptionalFileListOptions{})
				return err
			},
			wantCall: `optionalFileList ["current site","time_downloaded DESC",10]`,
		},
		{
			name:    "aes encrypt generates key and iv",
			replies: map[string]reply.Reply{"aesEncrypt": raw(`["k","i","e"]`)},
			run: func(c *Client) error {
				_, err := c.AesEncrypt(ctx, "secret", "", "")
				return err
			},
			wantCall: `aesEncrypt ["secret","generate new","generate new"]`,
		},
		{
			name:    "file query without query",
			replies: map[string]reply.Reply{"fileQuery": raw(`[]`)},
			run: func(c *Client) error {
				_, err := FileQuery[map[string]any](ctx, c, "data/users/*/data.json", "")
				return err
			},
			wantCall: `fileQuery ["data/users/*/data.json"]`,
		},
		{
			name:    "db query empty params",
			replies: map[string]reply.Reply{"dbQuery": raw(`[]`)},
			run: func(c *Client) error {
				_, err := DBQuery[map[string]any](ctx, c, "SELECT * FROM feed", nil)
				return err
			},
			wantCall: `dbQuery ["SELECT * FROM feed",{}]`,
		},
		{
			name:    "mute add",
			replies: map[string]reply.Reply{"muteAdd": reply.String("ok")},
			run: func(c *Client) error {
				return c.MuteAdd(ctx, "1Auth", "spammer@zeroid.bit", "spam")
			},
			wantCall: `muteAdd ["1Auth","spammer@zeroid.bit","spam"]`,
		},
		{
			name:    "feed query",
			replies: map[string]reply.Reply{"feedQuery": raw(`{"rows":[],"num":0}`)},
			run: func(c *Client) error {
				_, err := c.FeedQuery(ctx, 10, 3)
				return err
			},
			wantCall: `feedQuery [10,3]`,
		},
		{
			name:     "cors permission",
			replies:  map[string]reply.Reply{"corsPermission": reply.String("ok")},
			run:      func(c *Client) error { return c.CorsPermission(ctx, "1HeLLo4uzjaLetFx6NH3PMwFP3qbRbTf3D") },
			wantCall: `corsPermission ["1HeLLo4uzjaLetFx6NH3PMwFP3qbRbTf3D"]`,
		},
		{
			name:    "chart db query",
			replies: map[string]reply.Reply{"chartDbQuery": raw(`[{"value":3}]`)},
			run: func(c *Client) error {
				_, err := ChartDBQuery[map[string]any](ctx, c, "SELECT value FROM data", nil)
				return err
			},
			wantCall: `chartDbQuery ["SELECT value FROM data",{}]`,
		},
		{
			name:    "ecies decrypt multiple",
			replies: map[string]reply.Reply{"eciesDecrypt": raw(`["a",null]`)},
			run: func(c *Client) error {
				_, err := c.EciesDecryptMultiple(ctx, []string{"x", "y"}, 0)
				return err
			},
			wantCall: `eciesDecrypt [["x","y"],0]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, host, _ := newTestClient(tt.replies)
			if err := tt.run(c); err != nil {
				t.Fatalf("%s - unexpected error %v", clientTestPrefix, err)
			}
			if got := host.lastCall(t); got != tt.wantCall {
				t.Errorf("%s - call = %s, want %s", clientTestPrefix, got, tt.wantCall)
			}
		})
	}
}

func TestClient_FireAndForget(t *testing.T) {
	c, host, b := newTestClient(nil)

	if err := c.CertSelect([]string{"zeroid.bit"}, false, ""); err != nil {
		t.Fatalf("%s - CertSelect: %v", clientTestPrefix, err)
	}
	if err := c.NotifyInfo("saved", 0); err != nil {
		t.Fatalf("%s - NotifyInfo: %v", clientTestPrefix, err)
	}
	if err := c.NotifyError("failed", 5000); err != nil {
		t.Fatalf("%s - NotifyError: %v", clientTestPrefix, err)
	}
	if err := c.OptionalFilePin("data/video.mp4", ""); err != nil {
		t.Fatalf("%s - OptionalFilePin: %v", clientTestPrefix, err)
	}
	if err := c.SiteUpdate(""); err != nil {
		t.Fatalf("%s - SiteUpdate: %v", clientTestPrefix, err)
	}

	sent := b.Sent()
	if len(sent) != 5 {
		t.Fatalf("%s - sent %d commands, want 5", clientTestPrefix, len(sent))
	}
	wantParams := []string{
		`["zeroid.bit"],false,""`,
		`"info","saved"`,
		`"error","failed",5000`,
		`"data/video.mp4"`,
		``,
	}
	wantCmds := []string{"certSelect", "wrapperNotification", "wrapperNotification", "optionalFilePin", "siteUpdate"}
	for i, s := range sent {
		data, _ := json.Marshal(s.Params)
		if s.Cmd != wantCmds[i] || string(data) != "["+wantParams[i]+"]" {
			t.Errorf("%s - sent[%d] = %s %s, want %s [%s]", clientTestPrefix, i, s.Cmd, data, wantCmds[i], wantParams[i])
		}
	}
	if len(host.calls) != 0 {
		t.Errorf("%s - fire-and-forget commands must not wait for replies", clientTestPrefix)
	}
}

func TestClient_FileNeedRejectsZeroTimeout(t *testing.T) {
	c, host, _ := newTestClient(nil)

	err := c.FileNeed(context.Background(), "data/x", 0)
	if !errors.Is(err, ErrRemoteError) || err.Error() != "zeronet internal error: Timeout should not be 0" {
		t.Errorf("%s - got %v", clientTestPrefix, err)
	}
	if len(host.calls) != 0 {
		t.Errorf("%s - zero timeout must not reach the host", clientTestPrefix)
	}
}

func TestClient_TransportErrorIsNotClassified(t *testing.T) {
	c, host, _ := newTestClient(nil)
	lost := errors.New("connection lost")
	host.errs["siteInfo"] = lost

	_, err := c.SiteInfo(context.Background())
	if !errors.Is(err, lost) {
		t.Fatalf("%s - got %v, want transport error", clientTestPrefix, err)
	}
	var classified *Error
	if errors.As(err, &classified) {
		t.Errorf("%s - transport failure must not be a classified error", clientTestPrefix)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	c, host, _ := newTestClient(map[string]reply.Reply{"ping": reply.String("pong")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Ping(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("%s - got %v, want context.Canceled", clientTestPrefix, err)
	}
	if len(host.calls) != 0 {
		t.Errorf("%s - cancelled call must not reach the host", clientTestPrefix)
	}
}

func TestClient_Ping(t *testing.T) {
	c, _, _ := newTestClient(map[string]reply.Reply{"ping": reply.String("pong")})
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("%s - Ping: %v", clientTestPrefix, err)
	}

	c, _, _ = newTestClient(map[string]reply.Reply{"ping": reply.String("ok")})
	if err := c.Ping(context.Background()); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("%s - got %v, want InvalidResponse", clientTestPrefix, err)
	}
}

func TestClient_CertAdd(t *testing.T) {
	c, _, _ := newTestClient(map[string]reply.Reply{"certAdd": reply.String("Not changed")})
	added, err := c.CertAdd(context.Background(), "zeroid.bit", "web", "alice", "cert")
	if err != nil || added {
		t.Errorf("%s - CertAdd = %v, %v; want false, nil", clientTestPrefix, added, err)
	}
}

func TestClient_Confirm(t *testing.T) {
	tests := []struct {
		reply   reply.Reply
		want    bool
		wantErr bool
	}{
		{reply: reply.Number(1), want: true},
		{reply: reply.Number(0), want: false},
		{reply: reply.String("1"), wantErr: true},
	}
	for _, tt := range tests {
		c, _, _ := newTestClient(map[string]reply.Reply{"wrapperConfirm": tt.reply})
		got, err := c.Confirm(context.Background(), "Delete?", "Delete")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("%s - Confirm(%v) = %v, %v", clientTestPrefix, tt.reply, got, err)
		}
	}
}

func TestClient_FileGet(t *testing.T) {
	c, host, _ := newTestClient(map[string]reply.Reply{"fileGet": reply.String("aGVsbG8=")})

	data, err := c.FileGetBytes(context.Background(), "data/a.bin", FileGetOptions{Required: true, Timeout: 5})
	if err != nil {
		t.Fatalf("%s - FileGetBytes: %v", clientTestPrefix, err)
	}
	if string(data) != "hello" {
		t.Errorf("%s - data = %q", clientTestPrefix, data)
	}
	if got := host.lastCall(t); got != `fileGet ["data/a.bin",true,"base64",5]` {
		t.Errorf("%s - call = %s", clientTestPrefix, got)
	}

	c, _, _ = newTestClient(map[string]reply.Reply{"fileGet": reply.Null()})
	if _, err := c.FileGetString(context.Background(), "missing.json", FileGetOptions{}); !errors.Is(err, ErrFalsyResponse) {
		t.Errorf("%s - missing file: got %v, want FalsyResponse", clientTestPrefix, err)
	}

	c, _, _ = newTestClient(map[string]reply.Reply{"fileGet": reply.String(`{"error":"inside the file"}`)})
	text, err := c.FileGetString(context.Background(), "data/err.json", FileGetOptions{})
	if err != nil || text != `{"error":"inside the file"}` {
		t.Errorf("%s - file text must be returned verbatim, got %q, %v", clientTestPrefix, text, err)
	}
}

func TestClient_RemoteErrorFromOperation(t *testing.T) {
	c, _, _ := newTestClient(nil)
	_, err := c.DirList(context.Background(), "data")
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRemoteError || e.Message != "Unknown command: dirList" {
		t.Errorf("%s - got %v", clientTestPrefix, err)
	}
}

func TestClient_TruthinessFromBridge(t *testing.T) {
	host := &fakeHost{replies: map[string]reply.Reply{"siteReload": raw(`{}`)}}
	c := NewClient(bridge.NewCallbackBridge(host.invoke, reply.PyFalsy))
	if err := c.SiteReload(context.Background()); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("%s - structured replies never reach the falsy check, got %v", clientTestPrefix, err)
	}

	c = NewClient(bridge.NewCallbackBridge(host.invoke, nil), WithFalsy(func(r reply.Reply) bool {
		s, _ := r.AsString()
		return s == "0"
	}))
	host.replies["siteReload"] = reply.String("0")
	if err := c.SiteReload(context.Background()); !errors.Is(err, ErrFalsyResponse) {
		t.Errorf("%s - custom predicate: got %v, want FalsyResponse", clientTestPrefix, err)
	}
}

func TestClient_StructuredErrorsOption(t *testing.T) {
	host := &fakeHost{replies: map[string]reply.Reply{"siteSetLimit": raw(`{"error":"Forbidden"}`)}}
	c := NewClient(bridge.NewCallbackBridge(host.invoke, nil), WithStructuredErrors(true))
	if err := c.SiteSetLimit(context.Background(), 20); !errors.Is(err, ErrRemoteError) {
		t.Errorf("%s - got %v, want RemoteError", clientTestPrefix, err)
	}
}

func TestClient_AdminReplies(t *testing.T) {
	c, _, _ := newTestClient(map[string]reply.Reply{
		"sitePause":  reply.String("Paused"),
		"siteResume": reply.String("ok"),
	})
	if err := c.SitePause(context.Background(), "1Site"); err != nil {
		t.Errorf("%s - SitePause: %v", clientTestPrefix, err)
	}
	if err := c.SiteResume(context.Background(), "1Site"); !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("%s - SiteResume: got %v, want InvalidResponse", clientTestPrefix, err)
	}
}

func TestClient_MergerSiteList(t *testing.T) {
	c, host, _ := newTestClient(map[string]reply.Reply{
		"mergerSiteList": raw(`{"1Merged":"ZeroMe","2Merged":"ZeroMe"}`),
	})
	addresses, err := c.MergerSiteList(context.Background())
	if err != nil {
		t.Fatalf("%s - MergerSiteList: %v", clientTestPrefix, err)
	}
	if len(addresses) != 2 {
		t.Errorf("%s - addresses = %v", clientTestPrefix, addresses)
	}
	if got := host.lastCall(t); got != `mergerSiteList [false]` {
		t.Errorf("%s - call = %s", clientTestPrefix, got)
	}
}

func TestClient_Crypto(t *testing.T) {
	c, host, _ := newTestClient(map[string]reply.Reply{
		"aesEncrypt":   raw(`["a2V5","aXY=","ZW5j"]`),
		"aesDecrypt":   raw(`["plain",null]`),
		"eciesEncrypt": raw(`["Y2lwaGVy","YWVza2V5"]`),
	})
	ctx := context.Background()

	enc, err := c.AesEncrypt(ctx, "plain", "a2V5", "aXY=")
	if err != nil || enc.Key != "a2V5" || enc.IV != "aXY=" || enc.Encrypted != "ZW5j" {
		t.Errorf("%s - AesEncrypt = %+v, %v", clientTestPrefix, enc, err)
	}

	out, err := c.AesDecryptMultiple(ctx, []AesCiphertext{{IV: "aXY=", Encrypted: "ZW5j"}, {IV: "x", Encrypted: "y"}}, []string{"a2V5"})
	if err != nil || len(out) != 2 || out[0] == nil || *out[0] != "plain" || out[1] != nil {
		t.Errorf("%s - AesDecryptMultiple = %v, %v", clientTestPrefix, out, err)
	}
	if got := host.lastCall(t); got != `aesDecrypt [[["aXY=","ZW5j"],["x","y"]],["a2V5"]]` {
		t.Errorf("%s - call = %s", clientTestPrefix, got)
	}

	cipher, key, err := c.EciesEncryptWithKey(ctx, "plain", 0)
	if err != nil || cipher != "Y2lwaGVy" || key != "YWVza2V5" {
		t.Errorf("%s - EciesEncryptWithKey = %q, %q, %v", clientTestPrefix, cipher, key, err)
	}
}

func TestClient_RequireServer(t *testing.T) {
	c, _, _ := newTestClient(map[string]reply.Reply{
		"serverInfo": raw(`{"version":"0.7.6","rev":4560,"platform":"linux","ui_port":43110}`),
	})

	info, err := c.RequireServer(context.Background(), ">=0.7.0 rev>=4500")
	if err != nil {
		t.Fatalf("%s - RequireServer: %v", clientTestPrefix, err)
	}
	if info.UIPort != 43110 {
		t.Errorf("%s - UIPort = %d", clientTestPrefix, info.UIPort)
	}

	if _, err := c.RequireServer(context.Background(), ">=0.8.0"); err == nil {
		t.Errorf("%s - expected version mismatch", clientTestPrefix)
	}
	if _, err := c.RequireServer(context.Background(), "rev<1"); err == nil {
		t.Errorf("%s - expected parse error", clientTestPrefix)
	}
}

func TestClient_OnRequest(t *testing.T) {
	c, _, b := newTestClient(nil)

	got := make(chan string, 1)
	c.OnRequest("setSiteInfo", func(cmd string, params reply.Reply) {
		got <- cmd + " " + string(params.JSON())
	})
	if !b.Push("setSiteInfo", raw(`{"address":"1Site"}`)) {
		t.Fatalf("%s - push had no handler", clientTestPrefix)
	}
	if s := <-got; s != `setSiteInfo {"address":"1Site"}` {
		t.Errorf("%s - handler got %s", clientTestPrefix, s)
	}
}

func TestClient_BigfileUpload(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ZeroNet-Internal/BigfileUpload" || r.URL.Query().Get("upload_nonce") != "n1" {
			http.NotFound(w, r)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		received = string(data)
		_, _ = w.Write([]byte(`{"merkle_root":"abc"}`))
	}))
	defer srv.Close()

	c, host, _ := newTestClient(map[string]reply.Reply{
		"bigfileUploadInit": raw(`{"url":"/ZeroNet-Internal/BigfileUpload?upload_nonce=n1","piece_size":1048576,"inner_path":"data/video.mp4","file_relative_path":"video.mp4"}`),
	})

	upload, err := c.BigfileUpload(context.Background(), BigfileUploadParams{
		UIURL:     srv.URL,
		InnerPath: "data/video.mp4",
		Size:      11,
		Body:      strings.NewReader("video bytes"),
	})
	if err != nil {
		t.Fatalf("%s - BigfileUpload: %v", clientTestPrefix, err)
	}
	if received != "video bytes" {
		t.Errorf("%s - server received %q", clientTestPrefix, received)
	}
	if upload.PieceSize != 1048576 {
		t.Errorf("%s - PieceSize = %d", clientTestPrefix, upload.PieceSize)
	}
	if got := host.lastCall(t); got != `bigfileUploadInit ["data/video.mp4",11]` {
		t.Errorf("%s - call = %s", clientTestPrefix, got)
	}
}

func TestClient_MuteList(t *testing.T) {
	c, _, _ := newTestClient(map[string]reply.Reply{
		"muteList":   raw(`{"1Auth":{"cert_user_id":"spammer@zeroid.bit","reason":"spam","date_added":1700000000}}`),
		"muteRemove": reply.String(`{"error":"Not muted"}`),
	})
	ctx := context.Background()

	muted, err := c.MuteList(ctx)
	if err != nil {
		t.Fatalf("%s - MuteList: %v", clientTestPrefix, err)
	}
	if m, ok := muted["1Auth"]; !ok || m.CertUserID != "spammer@zeroid.bit" || m.Reason != "spam" {
		t.Errorf("%s - MuteList = %+v", clientTestPrefix, muted)
	}

	err = c.MuteRemove(ctx, "1Other")
	if !errors.Is(err, ErrRemoteError) {
		t.Errorf("%s - MuteRemove got %v, want ErrRemoteError", clientTestPrefix, err)
	}
}

func TestClient_UserLoginForm(t *testing.T) {
	c, _, b := newTestClient(nil)

	if err := c.UserLoginForm(); err != nil {
		t.Fatalf("%s - UserLoginForm: %v", clientTestPrefix, err)
	}
	sent := b.Sent()
	if len(sent) != 1 || sent[0].Cmd != "userLoginForm" {
		t.Errorf("%s - sent = %+v", clientTestPrefix, sent)
	}
}
