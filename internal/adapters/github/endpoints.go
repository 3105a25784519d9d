package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
)

const (
	maxDocBytes  = 4 << 20
	maxFileBytes = 256 << 10

	// MaxRepos is the largest page /users/:u/repos returns
	MaxRepos = 100
)

// User performs GET /users/{login}
func (c *Client) User(ctx context.Context, login string) (User, error) {
	var out User
	err := c.getJSON(ctx, "user", "/users/"+url.PathEscape(login), &out)
	return out, err
}

// Repos performs GET /users/{login}/repos for the most recently pushed repos
// the endpoint cannot sort by stars so callers reorder locally
func (c *Client) Repos(ctx context.Context, login string) ([]Repo, error) {
	p := fmt.Sprintf("/users/%s/repos?type=owner&sort=pushed&per_page=%d", url.PathEscape(login), MaxRepos)
	var out []Repo
	err := c.getJSON(ctx, "repos", p, &out)
	return out, err
}

// CommitCount counts commits by author in owner/repo using one page per commit
// and the rel="last" page number; an empty repository counts 0
func (c *Client) CommitCount(ctx context.Context, owner, repo, author string) (int, error) {
	p := fmt.Sprintf("/repos/%s/%s/commits?author=%s&per_page=1",
		url.PathEscape(owner), url.PathEscape(repo), url.QueryEscape(author))
	resp, err := c.Do(ctx, "commits", http.MethodGet, p, "")
	if err != nil {
		if statusOf(err) == http.StatusConflict {
			return 0, nil
		}
		return 0, err
	}
	defer c.closeBody(resp, p)

	if n := lastPage(resp.Header.Get("Link")); n > 0 {
		return n, nil
	}
	var page []json.RawMessage
	if err := decode(resp.Body, &page); err != nil {
		return 0, err
	}
	return len(page), nil
}

// FileContent performs GET /repos/{owner}/{repo}/contents/{path} in raw mode
// found is false on 404 or when path is a directory
func (c *Client) FileContent(ctx context.Context, owner, repo, path string) (body []byte, found bool, err error) {
	p := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), path)
	resp, err := c.Do(ctx, "contents", http.MethodGet, p, acceptRaw)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer c.closeBody(resp, p)

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes))
	if err != nil {
		return nil, false, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github read contents")
	}
	// directories ignore the raw media type and answer with a JSON listing
	if len(b) > 0 && b[0] == '[' && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return nil, false, nil
	}
	return b, true, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	resp, err := c.Do(ctx, endpoint, http.MethodGet, path, "")
	if err != nil {
		return err
	}
	defer c.closeBody(resp, path)
	return decode(resp.Body, out)
}

func decode(r io.Reader, out any) error {
	b, err := io.ReadAll(io.LimitReader(r, maxDocBytes))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "github read body")
	}
	if err := json.Unmarshal(b, out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "github decode body")
	}
	return nil
}

func (c *Client) closeBody(resp *http.Response, path string) {
	if cerr := resp.Body.Close(); cerr != nil {
		c.log.Error().Err(cerr).Str("path", path).Msg("github close body failed")
	}
}
