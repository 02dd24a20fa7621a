package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/familytree/pkg/analysis"
	"github.com/vanderheijden86/familytree/pkg/loader"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/session"
	"github.com/vanderheijden86/familytree/pkg/testutil"
)

func staticSource(data model.FamilyData, err error) SourceFunc {
	return func(context.Context) (model.FamilyData, error) { return data, err }
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Source == nil {
		opts.Source = staticSource(testutil.SmallFamily(), nil)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decoding %s: %v", body, err)
	}
	return v
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without a source")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := get(t, ts, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, body); got["status"] != "healthy" {
		t.Errorf("unexpected body %s", body)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}

func TestRequestID_Echoed(t *testing.T) {
	ts := newTestServer(t, Options{})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestFamilyData(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := get(t, ts, "/api/family-data", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	data := decode[model.FamilyData](t, body)
	testutil.AssertPersonCount(t, data, 2)
}

func TestFamilyData_MissingFileServesEmpty(t *testing.T) {
	ts := newTestServer(t, Options{Source: staticSource(model.Empty(), loader.ErrNotFound)})
	resp, body := get(t, ts, "/api/family-data", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) != `{"generations":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestFamilyData_LoadFailure(t *testing.T) {
	ts := newTestServer(t, Options{Source: staticSource(model.FamilyData{}, errors.New("unexpected end of JSON input"))})
	for _, path := range []string{"/api/family-data", "/api/tree", "/api/search?q=x", "/api/check"} {
		resp, body := get(t, ts, path, "")
		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
		}
		if got := decode[map[string]string](t, body); got["error"] != LoadErrorMessage {
			t.Errorf("%s: body = %s", path, body)
		}
	}
}

func TestTree(t *testing.T) {
	ts := newTestServer(t, Options{})
	_, body := get(t, ts, "/api/tree", "")
	tree := decode[model.FamilyData](t, body)
	if len(tree.Generations) != 1 || tree.Generations[0].Title != model.TreeTitle {
		t.Fatalf("unexpected tree %s", body)
	}
	roots := tree.Generations[0].People
	testutil.AssertIDs(t, roots, "1")
	testutil.AssertIDs(t, roots[0].Children, "2")
}

func TestTree_CycleIsCut(t *testing.T) {
	data := model.FamilyData{Generations: []model.Generation{
		{Title: "一世", People: []*model.Person{{ID: "a", Name: "A"}}},
		{Title: "二世", People: []*model.Person{{ID: "b", Name: "B", FatherID: "a"}}},
		{Title: "三世", People: []*model.Person{{ID: "a", Name: "A again", FatherID: "b"}}},
	}}
	ts := newTestServer(t, Options{Source: staticSource(data, nil)})
	resp, body := get(t, ts, "/api/tree", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.StatusCode, body)
	}

	var tree struct {
		Generations []struct {
			People []struct {
				ID       string `json:"id"`
				Children []struct {
					ID       string `json:"id"`
					Children []struct {
						ID    string `json:"id"`
						Cycle bool   `json:"cycle"`
					} `json:"children"`
				} `json:"children"`
			} `json:"people"`
		} `json:"generations"`
	}
	if err := json.Unmarshal(body, &tree); err != nil {
		t.Fatalf("decoding %s: %v", body, err)
	}
	roots := tree.Generations[0].People
	if len(roots) != 1 || roots[0].ID != "a" || len(roots[0].Children) != 1 || roots[0].Children[0].ID != "b" {
		t.Fatalf("unexpected tree %s", body)
	}
	back := roots[0].Children[0].Children
	if len(back) != 1 || back[0].ID != "a" || !back[0].Cycle {
		t.Errorf("expected a cycle marker under b, got %s", body)
	}
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := get(t, ts, "/api/search?q=leiden", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	got := decode[SearchResponse](t, body)
	if !got.Active || got.Total != 1 || got.View != "list" {
		t.Fatalf("unexpected response %+v", got)
	}
	if got.Matches[0].Person.ID != "2" || got.Matches[0].Kind != "info" {
		t.Errorf("unexpected match %+v", got.Matches[0])
	}
	testutil.AssertPersonCount(t, got.Data, 1)

	_, body = get(t, ts, "/api/search?q=leiden&info=false", "")
	if got := decode[SearchResponse](t, body); got.Total != 0 || len(got.Matches) != 0 {
		t.Errorf("info search disabled should match nothing, got %+v", got)
	}
}

func TestSearch_TreeViewAndYears(t *testing.T) {
	ts := newTestServer(t, Options{})
	_, body := get(t, ts, "/api/search?start=1950&end=1960&view=tree", "")
	got := decode[SearchResponse](t, body)
	if got.View != "tree" || got.Total != 1 {
		t.Fatalf("unexpected response %+v", got)
	}
	if len(got.Data.Generations) != 1 || got.Data.Generations[0].Title != model.SearchResultsTitle {
		t.Errorf("expected pruned tree, got %s", body)
	}
}

func TestSearch_Inactive(t *testing.T) {
	ts := newTestServer(t, Options{})
	_, body := get(t, ts, "/api/search", "")
	got := decode[SearchResponse](t, body)
	if got.Active || got.Total != 0 || got.Matches == nil {
		t.Errorf("inactive query should return no matches and an empty list, got %s", body)
	}
	testutil.AssertPersonCount(t, got.Data, 2)
}

func TestSearch_MaxResults(t *testing.T) {
	ts := newTestServer(t, Options{MaxResults: 1})
	_, body := get(t, ts, "/api/search?gen=G1", "")
	got := decode[SearchResponse](t, body)
	if got.Total != 2 || got.Shown != 1 || len(got.Matches) != 1 {
		t.Errorf("expected 1 of 2 matches, got %+v", got)
	}
}

func TestSearch_BadParams(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, q := range []string{"start=abc", "end=19x0", "info=maybe", "view=grid"} {
		resp, _ := get(t, ts, "/api/search?"+q, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d", q, resp.StatusCode)
		}
	}
}

func TestCheck(t *testing.T) {
	data := testutil.SmallFamily()
	data.Generations[0].People[0].FatherID = "2"
	ts := newTestServer(t, Options{Source: staticSource(data, nil)})
	_, body := get(t, ts, "/api/check", "")
	report := decode[analysis.Report](t, body)
	if report.OK() || len(report.Cycles) != 1 {
		t.Errorf("expected a cycle to be reported, got %s", body)
	}
}

func TestTreeSVG(t *testing.T) {
	ts := newTestServer(t, Options{Title: "陈氏族谱"})
	resp, body := get(t, ts, "/api/tree.svg?q=Bob", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/svg+xml") {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "陈氏族谱") || !strings.Contains(string(body), "Bob") {
		t.Error("svg should carry the title and people")
	}

	empty := newTestServer(t, Options{Source: staticSource(model.Empty(), nil)})
	if resp, _ := get(t, empty, "/api/tree.svg", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("empty tree: status = %d", resp.StatusCode)
	}
}

func login(t *testing.T, ts *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := ts.Client().Post(ts.URL+"/api/login", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func TestAuth(t *testing.T) {
	sess := session.New(session.Options{Passphrase: "secret"})
	ts := newTestServer(t, Options{Session: sess})

	if resp, _ := get(t, ts, "/health", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("health should stay open, got %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts, "/api/family-data", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d", resp.StatusCode)
	}
	if resp, _ := get(t, ts, "/api/family-data", "garbage"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d", resp.StatusCode)
	}

	if resp, _ := login(t, ts, `{"name":"陈","passphrase":"wrong"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong passphrase: status = %d", resp.StatusCode)
	}
	if resp, _ := login(t, ts, `{not json`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body: status = %d", resp.StatusCode)
	}

	resp, body := login(t, ts, `{"name":" 陈明 ","passphrase":"secret"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status = %d: %s", resp.StatusCode, body)
	}
	lr := decode[loginResponse](t, body)
	if lr.Token == "" || lr.Name != "陈明" {
		t.Fatalf("unexpected login response %s", body)
	}
	if d := time.Until(lr.ExpiresAt); d < 23*time.Hour || d > 25*time.Hour {
		t.Errorf("expiry should be about a day out, got %s", d)
	}

	if resp, body := get(t, ts, "/api/family-data", lr.Token); resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d: %s", resp.StatusCode, body)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	now := time.Now()
	past := session.New(session.Options{Passphrase: "secret", Now: func() time.Time { return now.Add(-48 * time.Hour) }})
	token, err := past.Issue("old")
	if err != nil {
		t.Fatal(err)
	}

	ts := newTestServer(t, Options{Session: session.New(session.Options{Passphrase: "secret"})})
	resp, body := get(t, ts, "/api/family-data", token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decode[map[string]string](t, body); got["error"] != "Token has expired" {
		t.Errorf("body = %s", body)
	}
}

func TestNoSession_NoLoginRoute(t *testing.T) {
	ts := newTestServer(t, Options{})
	if resp, _ := login(t, ts, `{}`); resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("login without a session should not be routed, got %d", resp.StatusCode)
	}
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=%E9%99%88&gen=G1&gen=G2&gen=G1&start=1900&info=0", nil)
	term, f, err := ParseQuery(req)
	if err != nil {
		t.Fatal(err)
	}
	if term != "陈" || f.SearchInInfo || len(f.SelectedGenerations) != 2 {
		t.Errorf("unexpected parse: %q %+v", term, f)
	}
	if f.YearRange.Start == nil || *f.YearRange.Start != 1900 || f.YearRange.End != nil {
		t.Errorf("unexpected year range %+v", f.YearRange)
	}
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s, err := New(Options{Addr: "127.0.0.1:0", Source: staticSource(model.Empty(), nil)})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
