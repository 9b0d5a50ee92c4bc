package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/morezero/zeroframe/pkg/bridge"
	"github.com/morezero/zeroframe/pkg/db"
	"github.com/morezero/zeroframe/pkg/reply"
	"github.com/morezero/zeroframe/pkg/zeroframe"
)

const cliTestPrefix = "cli:root_test"

type recordedCall struct {
	cmd    string
	params []any
}

type fakeStore struct {
	saved []db.SaveRowsParams
	err   error
}

func (s *fakeStore) SaveRows(_ context.Context, p db.SaveRowsParams) (int, error) {
	s.saved = append(s.saved, p)
	return len(p.Rows), s.err
}

// run executes args against an in-process host answering from replies.
func run(t *testing.T, replies map[string]reply.Reply, args ...string) (string, []recordedCall, *bridge.CallbackBridge, error) {
	t.Helper()
	var calls []recordedCall
	host := bridge.NewCallbackBridge(func(_ context.Context, cmd string, params []any) (reply.Reply, error) {
		calls = append(calls, recordedCall{cmd: cmd, params: params})
		if r, ok := replies[cmd]; ok {
			return r, nil
		}
		return reply.String(`{"error":"Unknown command: ` + cmd + `"}`), nil
	}, reply.PyFalsy)

	dial := func(context.Context, Options) (*zeroframe.Client, error) {
		return zeroframe.NewClient(host), nil
	}
	store := &fakeStore{}
	open := func(context.Context, string) (MirrorStore, func(), error) {
		return store, func() {}, nil
	}

	root := New(dial, open, "1.2.3")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), calls, host, err
}

func TestVersion(t *testing.T) {
	out, _, _, err := run(t, nil, "version")
	if err != nil || out != "1.2.3\n" {
		t.Errorf("%s - version = %q, %v", cliTestPrefix, out, err)
	}
}

func TestCall(t *testing.T) {
	out, calls, _, err := run(t, map[string]reply.Reply{
		"fileGet": reply.String("hello"),
	}, "call", "fileGet", "data/a.txt", "true", `{"x":1}`)
	if err != nil {
		t.Fatalf("%s - call: %v", cliTestPrefix, err)
	}
	if strings.TrimSpace(out) != `"hello"` {
		t.Errorf("%s - output = %q", cliTestPrefix, out)
	}
	want := []any{"data/a.txt", true, map[string]any{"x": float64(1)}}
	got, _ := json.Marshal(calls[0].params)
	wantJSON, _ := json.Marshal(want)
	if string(got) != string(wantJSON) {
		t.Errorf("%s - params = %s, want %s", cliTestPrefix, got, wantJSON)
	}
}

func TestCall_Check(t *testing.T) {
	_, _, _, err := run(t, map[string]reply.Reply{
		"fileDelete": reply.String(`{"error":"Delete error: not found"}`),
	}, "call", "--check", "fileDelete", "x")

	var zerr *zeroframe.Error
	if !errors.As(err, &zerr) || zerr.Kind != zeroframe.KindRemoteError {
		t.Errorf("%s - got %v, want remote error", cliTestPrefix, err)
	}
}

func TestPing(t *testing.T) {
	out, _, _, err := run(t, map[string]reply.Reply{"ping": reply.String("pong")}, "ping")
	if err != nil || out != "pong\n" {
		t.Errorf("%s - ping = %q, %v", cliTestPrefix, out, err)
	}
}

func TestServerInfo_Require(t *testing.T) {
	replies := map[string]reply.Reply{
		"serverInfo": reply.FromJSON([]byte(`{"version":"0.7.1","rev":4555}`)),
	}

	out, _, _, err := run(t, replies, "server-info", "--require", ">=0.7 rev>=4000")
	if err != nil {
		t.Fatalf("%s - server-info: %v", cliTestPrefix, err)
	}
	if !strings.Contains(out, `"rev": 4555`) {
		t.Errorf("%s - output = %s", cliTestPrefix, out)
	}

	if _, _, _, err := run(t, replies, "server-info", "--require", "rev>=5000"); err == nil {
		t.Errorf("%s - expected requirement failure", cliTestPrefix)
	}
}

func TestQuery(t *testing.T) {
	out, calls, _, err := run(t, map[string]reply.Reply{
		"dbQuery": reply.FromJSON([]byte(`[{"title":"a"},{"title":"b"}]`)),
	}, "query", "SELECT title FROM post WHERE ?", "--params", `{"post_id":1}`)
	if err != nil {
		t.Fatalf("%s - query: %v", cliTestPrefix, err)
	}
	var rows []map[string]string
	if err := json.Unmarshal([]byte(out), &rows); err != nil || len(rows) != 2 || rows[1]["title"] != "b" {
		t.Errorf("%s - rows = %s (%v)", cliTestPrefix, out, err)
	}
	if len(calls[0].params) != 2 {
		t.Errorf("%s - params = %v", cliTestPrefix, calls[0].params)
	}

	if _, _, _, err := run(t, nil, "query", "SELECT 1", "--params", "[1]"); err == nil {
		t.Errorf("%s - expected error for non-object --params", cliTestPrefix)
	}
}

func TestFile(t *testing.T) {
	out, _, _, err := run(t, map[string]reply.Reply{"fileGet": reply.String("aGk=")}, "file", "get", "data/x.bin")
	if err != nil || out != "hi" {
		t.Errorf("%s - file get = %q, %v", cliTestPrefix, out, err)
	}

	out, _, _, err = run(t, map[string]reply.Reply{
		"fileList": reply.FromJSON([]byte(`["content.json","index.html"]`)),
	}, "file", "list", "")
	if err != nil || out != "content.json\nindex.html\n" {
		t.Errorf("%s - file list = %q, %v", cliTestPrefix, out, err)
	}
}

func TestFeed(t *testing.T) {
	out, calls, _, err := run(t, map[string]reply.Reply{
		"feedQuery": reply.FromJSON([]byte(`{"rows":[{"type":"post","title":"t","site":"1Site"}],"num":1}`)),
	}, "feed", "--limit", "5")
	if err != nil {
		t.Fatalf("%s - feed: %v", cliTestPrefix, err)
	}
	if !strings.Contains(out, `"title": "t"`) {
		t.Errorf("%s - output = %s", cliTestPrefix, out)
	}
	if calls[0].params[0] != 5 {
		t.Errorf("%s - limit param = %v", cliTestPrefix, calls[0].params[0])
	}
}

func TestMirror(t *testing.T) {
	var calls []recordedCall
	host := bridge.NewCallbackBridge(func(_ context.Context, cmd string, params []any) (reply.Reply, error) {
		calls = append(calls, recordedCall{cmd: cmd, params: params})
		return reply.FromJSON([]byte(`[{"id":1},{"id":2},{"id":3}]`)), nil
	}, nil)
	store := &fakeStore{}
	root := New(
		func(context.Context, Options) (*zeroframe.Client, error) { return zeroframe.NewClient(host), nil },
		func(context.Context, string) (MirrorStore, func(), error) { return store, func() {}, nil },
		"dev",
	)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"mirror", "--site", "1Site", "--query", "SELECT id FROM post", "--source", "posts", "--database", "postgres://x/y"})

	if err := root.Execute(); err != nil {
		t.Fatalf("%s - mirror: %v", cliTestPrefix, err)
	}
	if len(store.saved) != 1 || store.saved[0].Source != "posts" || store.saved[0].Site != "1Site" || len(store.saved[0].Rows) != 3 {
		t.Fatalf("%s - saved = %+v", cliTestPrefix, store.saved)
	}
	if string(store.saved[0].Rows[2]) != `{"id":3}` {
		t.Errorf("%s - third row = %s", cliTestPrefix, store.saved[0].Rows[2])
	}
	if out.String() != "mirrored 3 rows into posts\n" {
		t.Errorf("%s - output = %q", cliTestPrefix, out.String())
	}
}

func TestMirror_RequiresFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, _, _, err := run(t, nil, "mirror", "--query", "SELECT 1"); err == nil {
		t.Errorf("%s - expected error without --source", cliTestPrefix)
	}
	if _, _, _, err := run(t, nil, "mirror", "--query", "SELECT 1", "--source", "s"); err == nil {
		t.Errorf("%s - expected error without --database", cliTestPrefix)
	}
}

func TestWatch(t *testing.T) {
	host := bridge.NewCallbackBridge(nil, nil)
	registered := make(chan struct{})
	dial := func(context.Context, Options) (*zeroframe.Client, error) {
		defer close(registered)
		return zeroframe.NewClient(host), nil
	}
	root := New(dial, nil, "dev")

	var out safeBuffer
	root.SetOut(&out)
	root.SetArgs([]string{"watch", "setSiteInfo"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	<-registered
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "setSiteInfo") && time.Now().Before(deadline) {
		host.Push("setSiteInfo", reply.FromJSON([]byte(`{"tasks":2}`)))
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("%s - watch: %v", cliTestPrefix, err)
	}
	line := strings.SplitN(out.String(), "\n", 2)[0]
	if line != `{"cmd":"setSiteInfo","params":{"tasks":2}}` {
		t.Errorf("%s - line = %q", cliTestPrefix, line)
	}
}

func TestParseParams(t *testing.T) {
	got := parseParams([]string{"text", "12", "null", `["a"]`, "not json {"})
	want := []any{"text", float64(12), nil, []any{"a"}, "not json {"}
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if string(gotJSON) != string(wantJSON) {
		t.Errorf("%s - parseParams = %s, want %s", cliTestPrefix, gotJSON, wantJSON)
	}
}
