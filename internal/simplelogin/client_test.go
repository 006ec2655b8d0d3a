package simplelogin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{BaseURL: srv.URL, RequestsPerSecond: 1000})
}

func aliasJSON(id int, enabled bool, note any) map[string]any {
	return map[string]any{
		"id":                 id,
		"email":              fmt.Sprintf("alias%d@slmail.me", id),
		"enabled":            enabled,
		"note":               note,
		"creation_timestamp": 1700000000 + id,
		"nb_forward":         3,
	}
}

func TestAuthenticationHeader(t *testing.T) {
	var got string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authentication")
		json.NewEncoder(w).Encode(map[string]any{"aliases": []any{}})
	}))

	if _, err := c.ListAliases(context.Background(), "sl-key"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got != "sl-key" {
		t.Errorf("Authentication header = %q, want %q", got, "sl-key")
	}
}

func TestListAliases(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method: got %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/v2/aliases" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if r.URL.Query().Get("page_id") != "0" {
			t.Errorf("page_id: got %s, want 0", r.URL.Query().Get("page_id"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"aliases": []any{
				aliasJSON(1, true, "shop.example"),
				aliasJSON(2, false, nil),
			},
		})
	}))

	aliases, err := c.ListAliases(context.Background(), "k")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliases) != 2 {
		t.Fatalf("count: got %d, want 2", len(aliases))
	}

	a := aliases[0]
	if a.ID != 1 || a.Email != "alias1@slmail.me" || !a.Enabled || a.Note != "shop.example" {
		t.Errorf("aliases[0] = %+v", a)
	}
	if want := time.Unix(1700000001, 0).UTC(); !a.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", a.CreatedAt, want)
	}
	if aliases[1].Note != "" || aliases[1].Enabled {
		t.Errorf("aliases[1] = %+v, want empty note and disabled", aliases[1])
	}
}

func TestListAliasesPaginates(t *testing.T) {
	var pages []string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page_id"))
		pages = append(pages, r.URL.Query().Get("page_id"))

		n := pageSize
		if page == 1 {
			n = 3
		}
		items := make([]any, n)
		for i := range n {
			items[i] = aliasJSON(page*pageSize+i+1, true, nil)
		}
		json.NewEncoder(w).Encode(map[string]any{"aliases": items})
	}))

	aliases, err := c.ListAliases(context.Background(), "k")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliases) != pageSize+3 {
		t.Errorf("count: got %d, want %d", len(aliases), pageSize+3)
	}
	if len(pages) != 2 {
		t.Errorf("requested pages %v, want [0 1]", pages)
	}
}

func TestListAliasesMissingKey(t *testing.T) {
	called := false
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	_, err := c.ListAliases(context.Background(), "")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if called {
		t.Error("no request should be made without a key")
	}
}

func TestListAliasesErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
		apiStatus int
		apiMsg    string
	}{
		{"unauthorized with message", 401, `{"error":"Wrong api key"}`, false, 401, "Wrong api key"},
		{"server error without body", 500, ``, false, 500, "Internal Server Error"},
		{"missing aliases field", 200, `{"ok":true}`, true, 0, ""},
		{"truncated json", 200, `{"aliases":[{"id":1,`, true, 0, ""},
		{"alias without id", 200, `{"aliases":[{"email":"a@x.io"}]}`, true, 0, ""},
		{"null aliases", 200, `{"aliases":null}`, true, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))

			aliases, err := c.ListAliases(context.Background(), "k")
			if err == nil {
				t.Fatalf("expected error, got %d aliases", len(aliases))
			}
			if aliases != nil {
				t.Errorf("aliases should be nil on error, got %v", aliases)
			}

			if tt.malformed {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("err = %v, want ErrMalformedResponse", err)
				}
				return
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.StatusCode != tt.apiStatus || apiErr.Message != tt.apiMsg {
				t.Errorf("api error = %+v, want %d %q", apiErr, tt.apiStatus, tt.apiMsg)
			}
		})
	}
}

func TestListAliasesEmptyIsNotAnError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"aliases":[]}`)
	}))

	aliases, err := c.ListAliases(context.Background(), "k")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliases) != 0 {
		t.Errorf("count: got %d, want 0", len(aliases))
	}
}

func TestUpdateAliasNote(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method: got %s, want PATCH", r.Method)
		}
		if r.URL.Path != "/api/aliases/42" {
			t.Errorf("path: got %s", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["note"] != "hello" {
			t.Errorf("note: got %q", body["note"])
		}

		json.NewEncoder(w).Encode(aliasJSON(42, true, "hello"))
	}))

	a, err := c.UpdateAliasNote(context.Background(), "k", 42, "hello")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if a.ID != 42 || a.Note != "hello" {
		t.Errorf("alias = %+v", a)
	}
}

func TestUpdateAliasNoteOKOnlyResponse(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"ok":true}`)
	}))

	a, err := c.UpdateAliasNote(context.Background(), "k", 7, "n")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if a.ID != 7 || a.Note != "n" {
		t.Errorf("alias = %+v, want id 7 note n", a)
	}
}

func TestUpdateAliasNoteNotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"Alias not found"}`)
	}))

	_, err := c.UpdateAliasNote(context.Background(), "k", 7, "n")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Fatalf("err = %v, want 404 *Error", err)
	}
}

func TestCreateRandomAlias(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/alias/random/new" {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("hostname"); got != "shop.example" {
			t.Errorf("hostname: got %q", got)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(aliasJSON(99, true, "shop.example"))
	}))

	a, err := c.CreateRandomAlias(context.Background(), "k", "shop.example", "shop.example")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != 99 || a.Email != "alias99@slmail.me" {
		t.Errorf("alias = %+v", a)
	}
}

func TestValidateKey(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authentication") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"aliases":[]}`)
	}))

	if err := c.ValidateKey(context.Background(), "good"); err != nil {
		t.Errorf("good key: %v", err)
	}
	if err := c.ValidateKey(context.Background(), "bad"); err == nil {
		t.Error("bad key should fail")
	}
	if err := c.ValidateKey(context.Background(), ""); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("empty key: %v", err)
	}
}

func TestErrorString(t *testing.T) {
	e := &Error{StatusCode: 401, Message: "Wrong api key"}
	want := "simplelogin: Wrong api key (status 401)"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}
