package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v58/github"

	"github.com/kofron/lattice/internal/forge"
)

func newMockClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := &Client{
		client: github.NewClient(nil),
		owner:  "testowner",
		repo:   "testrepo",
		ctx:    context.Background(),
		log:    forge.NewLogger(),
	}
	baseURL, _ := url.Parse(server.URL + "/")
	client.client.BaseURL = baseURL
	return client, server
}

func TestCreatePR(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body github.NewPullRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.GetTitle() != "add feature" {
			t.Errorf("title = %q", body.GetTitle())
		}
		json.NewEncoder(w).Encode(&github.PullRequest{
			Number: github.Int(7),
			Title:  github.String("add feature"),
			State:  github.String("open"),
			Head:   &github.PullRequestBranch{Ref: github.String("feature")},
			Base:   &github.PullRequestBranch{Ref: github.String("main")},
		})
	})
	client, _ := newMockClient(t, mux)

	pr, err := client.CreatePR(context.Background(), forge.CreatePRRequest{
		Title: "add feature", Head: "feature", Base: "main",
	})
	if err != nil {
		t.Fatalf("CreatePR: %v", err)
	}
	if pr.Number != 7 || pr.Head != "feature" || pr.Base != "main" {
		t.Errorf("unexpected PR: %+v", pr)
	}
}

func TestUpdatePR(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(&github.PullRequest{
			Number: github.Int(7),
			Title:  github.String("new title"),
		})
	})
	client, _ := newMockClient(t, mux)

	title := "new title"
	pr, err := client.UpdatePR(context.Background(), 7, forge.UpdatePRRequest{Title: &title})
	if err != nil {
		t.Fatalf("UpdatePR: %v", err)
	}
	if pr.Title != "new title" {
		t.Errorf("Title = %q, want %q", pr.Title, "new title")
	}
}

func TestGetPR(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&github.PullRequest{Number: github.Int(7), State: github.String("open")})
	})
	client, _ := newMockClient(t, mux)

	pr, err := client.GetPR(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetPR: %v", err)
	}
	if pr.Number != 7 {
		t.Errorf("Number = %d, want 7", pr.Number)
	}
}

func TestGetPR_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/99", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	})
	client, _ := newMockClient(t, mux)

	_, err := client.GetPR(context.Background(), 99)
	if err == nil {
		t.Fatal("expected error")
	}
	if !forge.IsNotFound(err) {
		t.Errorf("expected a NotFound APIError, got %v", err)
	}
}

func TestFindPRByHead(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		if head := r.URL.Query().Get("head"); head != "testowner:feature" {
			t.Errorf("head query = %q", head)
		}
		json.NewEncoder(w).Encode([]*github.PullRequest{
			{Number: github.Int(3), Head: &github.PullRequestBranch{Ref: github.String("feature")}},
		})
	})
	client, _ := newMockClient(t, mux)

	pr, err := client.FindPRByHead(context.Background(), "feature")
	if err != nil {
		t.Fatalf("FindPRByHead: %v", err)
	}
	if pr == nil || pr.Number != 3 {
		t.Errorf("unexpected result: %+v", pr)
	}
}

func TestFindPRByHead_NoMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]*github.PullRequest{})
	})
	client, _ := newMockClient(t, mux)

	pr, err := client.FindPRByHead(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("FindPRByHead: %v", err)
	}
	if pr != nil {
		t.Errorf("expected nil, got %+v", pr)
	}
}

func TestListOpenPRs_PaginatesAndCaps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" || page == "1" {
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, r.URL.Path))
			json.NewEncoder(w).Encode(makePulls(1, 100))
			return
		}
		json.NewEncoder(w).Encode(makePulls(101, 50))
	})
	client, _ := newMockClient(t, mux)

	result, err := client.ListOpenPRs(context.Background(), forge.ListOpenPRsOptions{})
	if err != nil {
		t.Fatalf("ListOpenPRs: %v", err)
	}
	if len(result.Pulls) != 150 {
		t.Errorf("len(Pulls) = %d, want 150", len(result.Pulls))
	}
	if result.Truncated {
		t.Error("expected Truncated=false for 150 < 200 cap")
	}
}

func TestListOpenPRs_TruncatesAtLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(makePulls(1, 10))
	})
	client, _ := newMockClient(t, mux)

	result, err := client.ListOpenPRs(context.Background(), forge.ListOpenPRsOptions{Limit: 5})
	if err != nil {
		t.Fatalf("ListOpenPRs: %v", err)
	}
	if len(result.Pulls) != 5 {
		t.Errorf("len(Pulls) = %d, want 5", len(result.Pulls))
	}
	if !result.Truncated {
		t.Error("expected Truncated=true when the limit is hit")
	}
}

func makePulls(startNumber, n int) []*github.PullRequest {
	pulls := make([]*github.PullRequest, n)
	for i := 0; i < n; i++ {
		pulls[i] = &github.PullRequest{Number: github.Int(startNumber + i)}
	}
	return pulls
}

func TestSetDraft(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		var body github.PullRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.GetDraft() != true {
			t.Errorf("expected draft=true in request body")
		}
		json.NewEncoder(w).Encode(&github.PullRequest{Number: github.Int(7), Draft: github.Bool(true)})
	})
	client, _ := newMockClient(t, mux)

	pr, err := client.SetDraft(context.Background(), 7, true)
	if err != nil {
		t.Fatalf("SetDraft: %v", err)
	}
	if !pr.Draft {
		t.Error("expected Draft=true")
	}
}

func TestRequestReviewers(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/7/requested_reviewers", func(w http.ResponseWriter, r *http.Request) {
		var body github.ReviewersRequest
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Reviewers) != 2 {
			t.Errorf("reviewers = %v", body.Reviewers)
		}
		json.NewEncoder(w).Encode(&github.PullRequest{Number: github.Int(7)})
	})
	client, _ := newMockClient(t, mux)

	if err := client.RequestReviewers(context.Background(), 7, []string{"alice", "bob"}); err != nil {
		t.Fatalf("RequestReviewers: %v", err)
	}
}

func TestMergePR(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/7/merge", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(&github.PullRequestMergeResult{Merged: github.Bool(true)})
	})
	client, _ := newMockClient(t, mux)

	if err := client.MergePR(context.Background(), 7, forge.MergePROptions{Method: "squash"}); err != nil {
		t.Fatalf("MergePR: %v", err)
	}
}

func TestMergePR_RateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/testowner/testrepo/pulls/7/merge", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"message": "rate limited"})
	})
	client, _ := newMockClient(t, mux)

	err := client.MergePR(context.Background(), 7, forge.MergePROptions{Method: "squash"})
	if !forge.IsRateLimited(err) {
		t.Errorf("expected a RateLimited error, got %v", err)
	}
}
