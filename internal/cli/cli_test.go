package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/zfill/internal/config"
	"github.com/zarlcorp/zfill/internal/persona"
	"github.com/zarlcorp/zfill/internal/simplelogin"
	"github.com/zarlcorp/zfill/internal/store"
)

// fakeSimpleLogin serves a fixed alias list and records note updates.
type fakeSimpleLogin struct {
	mu      sync.Mutex
	aliases []map[string]any
	notes   map[string]string
}

func (f *fakeSimpleLogin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authentication") != "good-key" {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"Wrong api key"}`)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/v2/aliases":
		items := f.aliases
		if r.URL.Query().Get("page_id") != "0" {
			items = nil
		}
		if items == nil {
			items = []map[string]any{}
		}
		json.NewEncoder(w).Encode(map[string]any{"aliases": items})
	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/api/aliases/"):
		var body struct {
			Note string `json:"note"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if f.notes == nil {
			f.notes = map[string]string{}
		}
		f.notes[strings.TrimPrefix(r.URL.Path, "/api/aliases/")] = body.Note
		io.WriteString(w, `{"ok":true}`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/alias/random/new":
		a := map[string]any{"id": 500, "email": "random500@slmail.me", "enabled": true, "creation_timestamp": 1700000500}
		f.aliases = append(f.aliases, a)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(a)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func slAlias(id int, note string) map[string]any {
	return map[string]any{
		"id":                 id,
		"email":              fmt.Sprintf("alias%d@slmail.me", id),
		"enabled":            true,
		"note":               note,
		"creation_timestamp": 1700000000 + id,
	}
}

type testEnv struct {
	app *App
	sl  *fakeSimpleLogin
	fs  *zfilesystem.OSFileSystem
}

func newTestEnv(t *testing.T, aliases ...map[string]any) *testEnv {
	t.Helper()

	sl := &fakeSimpleLogin{aliases: aliases}
	srv := httptest.NewServer(sl)
	t.Cleanup(srv.Close)

	fs := zfilesystem.NewOSFileSystem(t.TempDir())
	env := &testEnv{sl: sl, fs: fs}
	env.app = &App{
		Version: "1.2.3",
		Config:  config.Config{APIKey: "good-key"},
		Client:  simplelogin.NewClient(simplelogin.Config{BaseURL: srv.URL, RequestsPerSecond: 1000}),
		Gen:     persona.New(persona.WithRand(rand.New(rand.NewPCG(9, 9)))),
		Open: func() (*store.Store, error) {
			return store.Open(fs, []byte("testpass"))
		},
	}
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(e.app)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) personas(t *testing.T) []persona.Saved {
	t.Helper()
	s, err := e.app.Open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ps, err := s.Personas()
	if err != nil {
		t.Fatalf("personas: %v", err)
	}
	return ps
}

func TestIsFirstRun(t *testing.T) {
	dir := t.TempDir()
	if !IsFirstRun(dir) {
		t.Error("expected first run for empty dir")
	}

	os.WriteFile(filepath.Join(dir, "salt"), []byte("test"), 0o600)
	if IsFirstRun(dir) {
		t.Error("expected not first run after salt exists")
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "zfill 1.2.3\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestGenerateDoesNotOpenVault(t *testing.T) {
	env := newTestEnv(t)
	env.app.Open = func() (*store.Store, error) {
		t.Fatal("generate without --save must not open the vault")
		return nil, nil
	}

	out, err := env.run(t, "generate", "shop.example")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"name:", "email:", "@zfill.local", "domain:   shop.example"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateJSON(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "generate", "shop.example", "--json")
	if err != nil {
		t.Fatal(err)
	}

	var d persona.Draft
	if err := json.Unmarshal([]byte(out), &d); err != nil {
		t.Fatalf("output is not a draft: %v\n%s", err, out)
	}
	if d.Domain != "shop.example" || d.FullName == "" {
		t.Errorf("draft = %+v", d)
	}
}

func TestGenerateSave(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "generate", "shop.example", "--save"); err != nil {
		t.Fatal(err)
	}

	ps := env.personas(t)
	if len(ps) != 1 || ps[0].Linked() || ps[0].Domain != "shop.example" {
		t.Errorf("personas = %+v", ps)
	}
	if len(ps[0].ID) != 26 {
		t.Errorf("id %q is not a ulid", ps[0].ID)
	}
}

func TestGenerateAlias(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "generate", "shop.example", "--alias"); err != nil {
		t.Fatal(err)
	}

	ps := env.personas(t)
	if len(ps) != 1 {
		t.Fatalf("personas = %d, want 1", len(ps))
	}
	if id, ok := ps[0].AliasID(); !ok || id != 500 || ps[0].Email != "random500@slmail.me" {
		t.Errorf("persona = %+v", ps[0])
	}
}

func TestSyncListForgetRestore(t *testing.T) {
	env := newTestEnv(t, slAlias(1, "shop.example"), slAlias(2, ""))

	out, err := env.run(t, "sync")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !strings.Contains(out, "2 created") {
		t.Errorf("sync output = %q", out)
	}

	out, err = env.run(t, "list", "--domain", "shop.example", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ps []persona.Saved
	if err := json.Unmarshal([]byte(out), &ps); err != nil {
		t.Fatalf("list json: %v", err)
	}
	if len(ps) != 2 || ps[0].Domain != "shop.example" {
		t.Fatalf("list = %+v, want shop.example first", ps)
	}

	out, err = env.run(t, "forget", ps[0].ID)
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if !strings.Contains(out, "alias 1 will not be synced again") {
		t.Errorf("forget output = %q", out)
	}

	if _, err := env.run(t, "sync"); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if got := len(env.personas(t)); got != 1 {
		t.Errorf("personas after forget+sync = %d, want 1", got)
	}

	out, err = env.run(t, "aliases", "--filter", "wontsync")
	if err != nil {
		t.Fatalf("aliases: %v", err)
	}
	if !strings.Contains(out, "alias1@slmail.me") || strings.Contains(out, "alias2@slmail.me") {
		t.Errorf("wontsync aliases = %q", out)
	}

	if _, err := env.run(t, "restore", "1"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := env.run(t, "sync"); err != nil {
		t.Fatalf("third sync: %v", err)
	}
	if got := len(env.personas(t)); got != 2 {
		t.Errorf("personas after restore+sync = %d, want 2", got)
	}
}

func TestListQuery(t *testing.T) {
	env := newTestEnv(t, slAlias(1, "shop.example"), slAlias(2, "news.example"))
	if _, err := env.run(t, "sync"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "list", "--query", "news", "--fields", "domain")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "news.example") || strings.Contains(out, "shop.example") {
		t.Errorf("list output = %q", out)
	}

	if _, err := env.run(t, "list", "--fields", "ssn"); err == nil {
		t.Error("unknown field should fail")
	}
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.run(t, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "no saved personas") {
		t.Errorf("output = %q", out)
	}
}

func TestSyncFailures(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		aliases []map[string]any
		wantErr string
	}{
		{"missing key", "", []map[string]any{slAlias(1, "")}, "no SimpleLogin API key"},
		{"rejected key", "bad-key", []map[string]any{slAlias(1, "")}, "Wrong api key"},
		{"empty account", "good-key", nil, "returned no aliases"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.aliases...)
			env.app.Config.APIKey = tt.key

			_, err := env.run(t, "sync")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
			if got := len(env.personas(t)); got != 0 {
				t.Errorf("personas = %d after failed sync", got)
			}
		})
	}
}

func TestPushCommand(t *testing.T) {
	env := newTestEnv(t, slAlias(7, "shop.example"))
	if _, err := env.run(t, "sync"); err != nil {
		t.Fatal(err)
	}

	// push is off by default
	if _, err := env.run(t, "push"); err == nil || !strings.Contains(err.Error(), "turned off") {
		t.Fatalf("push with the flag off: err = %v", err)
	}
	if len(env.sl.notes) != 0 {
		t.Fatalf("notes written with push off: %v", env.sl.notes)
	}

	if _, err := env.run(t, "config", "push", "on"); err != nil {
		t.Fatal(err)
	}
	out, err := env.run(t, "push")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if !strings.Contains(out, "pushed 1 of 1") {
		t.Errorf("push output = %q", out)
	}
	if !strings.Contains(env.sl.notes["7"], `"domain": "shop.example"`) {
		t.Errorf("note = %q", env.sl.notes["7"])
	}
}

func TestConfigPush(t *testing.T) {
	env := newTestEnv(t, slAlias(3, ""))
	if _, err := env.run(t, "sync"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "config", "push", "on")
	if err != nil {
		t.Fatalf("push on: %v", err)
	}
	if !strings.Contains(out, "pushed 1 of 1") {
		t.Errorf("enabling push should push immediately: %q", out)
	}

	if _, err := env.run(t, "config", "push", "maybe"); err == nil {
		t.Error("invalid argument should fail")
	}

	if _, err := env.run(t, "config", "push", "off"); err != nil {
		t.Fatalf("push off: %v", err)
	}
	if _, err := env.run(t, "push"); err == nil {
		t.Error("push should fail once turned off")
	}
}

func TestConfigSetKey(t *testing.T) {
	env := newTestEnv(t)
	env.app.Config.APIKey = ""

	env.app.ReadKey = func(io.Writer) (string, error) { return "bad-key", nil }
	if _, err := env.run(t, "config", "set-key"); err == nil {
		t.Fatal("rejected key should not be saved")
	}

	env.app.ReadKey = func(io.Writer) (string, error) { return " good-key\n", nil }
	if _, err := env.run(t, "config", "set-key"); err != nil {
		t.Fatalf("set-key: %v", err)
	}

	s, err := env.app.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	st, _ := s.Settings()
	if st.APIKey != "good-key" {
		t.Errorf("stored key = %q", st.APIKey)
	}
}

func TestRestoreInvalidID(t *testing.T) {
	env := newTestEnv(t)
	for _, arg := range []string{"abc", "-1", "0"} {
		if _, err := env.run(t, "restore", "--", arg); err == nil {
			t.Errorf("restore %q should fail", arg)
		}
	}
}

func TestRootRunsTUI(t *testing.T) {
	env := newTestEnv(t)
	called := false
	env.app.RunTUI = func(context.Context) error {
		called = true
		return nil
	}
	if _, err := env.run(t); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("root command should launch the tui")
	}
}
