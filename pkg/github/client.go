package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lucasvtiradentes/gcal-sync/pkg/model"
)

const (
	// MaxCommitPages bounds a run's fetch window. Commits older than the
	// oldest commit inside this window are outside the deletion horizon.
	MaxCommitPages = 10
	commitsPerPage = 100
)

// Client fetches a user's commit history via the GitHub search API.
type Client struct {
	baseURL    string
	username   string
	token      string
	httpClient HTTPClient
}

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewClient(username, token string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    "https://api.github.com",
		username:   username,
		token:      token,
		httpClient: httpClient,
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// FetchCommits pages through the user's commit history, newest first as the
// API returns it, capped at MaxCommitPages. The result is deduplicated by sha
// and sorted oldest-first for stable calendar insertion order.
func (c *Client) FetchCommits(ctx context.Context) ([]model.Commit, error) {
	seen := map[string]bool{}
	var commits []model.Commit

	for page := 1; page <= MaxCommitPages; page++ {
		url := fmt.Sprintf("%s/search/commits?q=author:%s&sort=committer-date&order=desc&per_page=%d&page=%d",
			c.baseURL, c.username, commitsPerPage, page)

		var response searchCommitsResponse
		if err := c.doRequest(ctx, url, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			if seen[item.SHA] {
				continue
			}
			seen[item.SHA] = true
			commits = append(commits, convertCommit(item))
		}

		if len(response.Items) < commitsPerPage {
			break
		}
	}

	sort.Slice(commits, func(i, j int) bool {
		return commits[i].Date.Before(commits[j].Date)
	})
	return commits, nil
}

func (c *Client) doRequest(ctx context.Context, url string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("Accept", "application/vnd.github.cloak-preview+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: ErrorKindGeneric, Username: c.username, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return classifyError(resp.StatusCode, string(body), c.username)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func convertCommit(item searchCommitItem) model.Commit {
	owner, name, _ := strings.Cut(item.Repository.FullName, "/")
	return model.Commit{
		ID:      item.SHA,
		Date:    item.Commit.Committer.Date,
		Message: item.Commit.Message,
		URL:     item.HTMLURL,
		Repository: model.Repository{
			Owner:       owner,
			Name:        name,
			FullName:    item.Repository.FullName,
			ID:          item.Repository.ID,
			Description: item.Repository.Description,
			Private:     item.Repository.Private,
			Fork:        item.Repository.Fork,
		},
	}
}

// GitHub API response types
type searchCommitsResponse struct {
	TotalCount int                `json:"total_count"`
	Items      []searchCommitItem `json:"items"`
}

type searchCommitItem struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message   string `json:"message"`
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
	Repository struct {
		ID          int64  `json:"id"`
		FullName    string `json:"full_name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
		Fork        bool   `json:"fork"`
	} `json:"repository"`
}
