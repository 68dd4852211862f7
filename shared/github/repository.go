package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/pontoumdigital/blogsync/blog/domain"
)

var _ domain.ObjectStore = (*ContentsStore)(nil)

// ContentsStore is a domain.ObjectStore backed by the GitHub contents API.
// Every write is a commit on branch; versions are blob SHAs.
type ContentsStore struct {
	client    *github.Client
	owner     string
	gitRepo   string
	branch    string
	committer *github.CommitAuthor
}

// NewClient creates an authenticated GitHub client. apiURL is only needed for GitHub Enterprise.
func NewClient(token, apiURL string, timeout time.Duration) (*github.Client, error) {
	client := github.NewClient(&http.Client{Timeout: timeout}).WithAuthToken(token)
	if apiURL == "" {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("github: invalid API URL %s: %w", apiURL, err)
	}
	return client, nil
}

// ParseRepo splits "owner/repo".
func ParseRepo(fullName string) (owner string, gitRepo string, err error) {
	owner, gitRepo, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || gitRepo == "" || strings.Contains(gitRepo, "/") {
		return "", "", fmt.Errorf("github: repository must look like owner/repo, got %q", fullName)
	}
	return owner, gitRepo, nil
}

// NewContentsStore creates a ContentsStore. An empty branch means the repository's default branch.
// committer may be nil to commit as the token's user.
func NewContentsStore(client *github.Client, owner string, gitRepo string, branch string, committer *github.CommitAuthor) *ContentsStore {
	return &ContentsStore{
		client:    client,
		owner:     owner,
		gitRepo:   gitRepo,
		branch:    branch,
		committer: committer,
	}
}

// GetRepoFullName returns the repository's full name (e.g., "owner/repo").
func (g *ContentsStore) GetRepoFullName() string {
	return fmt.Sprintf("%s/%s", g.owner, g.gitRepo)
}

// Branch returns the branch commits are written to, empty meaning the default branch.
func (g *ContentsStore) Branch() string {
	return g.branch
}

// GetDefaultBranchName fetches the repository metadata and returns the name of the default branch.
func (g *ContentsStore) GetDefaultBranchName(ctx context.Context) (string, error) {
	op := fmt.Sprintf("getting repository info for %s/%s", g.owner, g.gitRepo)
	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.gitRepo)
	if err != nil {
		return "", handleGithubError(op, err)
	}
	return repo.GetDefaultBranch(), nil
}

// Read fetches a file and its blob SHA. Files over the contents API size limit
// are fetched through the Git blob API.
func (g *ContentsStore) Read(ctx context.Context, path string) (*domain.Object, error) {
	op := fmt.Sprintf("getting file %s at ref %s", path, g.refName())
	var opts *github.RepositoryContentGetOptions
	if g.branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.branch}
	}

	fileContent, dirContent, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.gitRepo, path, opts)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("github: %s: %w", op, domain.ErrNotFound)
		}
		return nil, handleGithubError(op, err)
	}
	if fileContent == nil {
		if dirContent != nil {
			return nil, fmt.Errorf("github: %s: path is a directory", op)
		}
		return nil, fmt.Errorf("github: %s returned nil file content", op)
	}

	sha := fileContent.GetSHA()
	if fileContent.GetEncoding() == "none" {
		blob, _, err := g.client.Git.GetBlobRaw(ctx, g.owner, g.gitRepo, sha)
		if err != nil {
			return nil, handleGithubError(fmt.Sprintf("getting blob %s for %s", sha, path), err)
		}
		return &domain.Object{Path: path, Content: blob, Version: domain.Version(sha)}, nil
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("github: %s failed to decode content: %w", op, err)
	}

	return &domain.Object{Path: path, Content: []byte(content), Version: domain.Version(sha)}, nil
}

// Write commits content to path. An empty version creates the file.
func (g *ContentsStore) Write(ctx context.Context, path string, content []byte, version domain.Version, message string) (domain.Version, error) {
	opts := &github.RepositoryContentFileOptions{
		Message:   github.Ptr(message),
		Content:   content,
		Committer: g.committer,
	}
	if g.branch != "" {
		opts.Branch = github.Ptr(g.branch)
	}

	var (
		resp *github.RepositoryContentResponse
		err  error
		op   string
	)
	if version == "" {
		op = fmt.Sprintf("creating file %s on %s", path, g.refName())
		resp, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.gitRepo, path, opts)
	} else {
		op = fmt.Sprintf("updating file %s on %s", path, g.refName())
		opts.SHA = github.Ptr(string(version))
		resp, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.gitRepo, path, opts)
	}
	if err != nil {
		if isConflict(err) || (version != "" && isStatus(err, http.StatusNotFound)) {
			return "", &domain.ConflictError{Path: path, Expected: version}
		}
		return "", handleGithubError(op, err)
	}

	if resp == nil || resp.Content == nil {
		return "", fmt.Errorf("github: %s returned no content", op)
	}
	return domain.Version(resp.Content.GetSHA()), nil
}

// Delete removes path in a commit, provided its blob SHA is still version.
func (g *ContentsStore) Delete(ctx context.Context, path string, version domain.Version, message string) error {
	op := fmt.Sprintf("deleting file %s on %s", path, g.refName())
	opts := &github.RepositoryContentFileOptions{
		Message:   github.Ptr(message),
		SHA:       github.Ptr(string(version)),
		Committer: g.committer,
	}
	if g.branch != "" {
		opts.Branch = github.Ptr(g.branch)
	}

	_, _, err := g.client.Repositories.DeleteFile(ctx, g.owner, g.gitRepo, path, opts)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("github: %s: %w", op, domain.ErrNotFound)
		}
		if isConflict(err) {
			return &domain.ConflictError{Path: path, Expected: version}
		}
		return handleGithubError(op, err)
	}
	return nil
}

func (g *ContentsStore) refName() string {
	if g.branch == "" {
		return "default branch"
	}
	return g.branch
}

// isConflict reports whether GitHub rejected a write because the file changed:
// 409 for a stale sha, 422 when creating a file that already exists.
func isConflict(err error) bool {
	return isStatus(err, http.StatusConflict) || isStatus(err, http.StatusUnprocessableEntity)
}

func isStatus(err error, status int) bool {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode == status
	}
	return false
}

// handleGithubError inspects an error from the go-github client and returns a more informative, structured error.
func handleGithubError(op string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("github: %s hit the rate limit (resets at %s): %w", op, rateErr.Rate.Reset.Time.Format(time.RFC3339), err)
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return fmt.Errorf("github: %s failed with status %d: %s", op, errResp.Response.StatusCode, errResp.Message)
	}

	return fmt.Errorf("github: %s failed: %w", op, err)
}
