package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	giturls "github.com/whilp/git-urls"
)

// Client は Git リポジトリの取得操作を提供する
// リモートURLが指定された場合のクローン/pull を担当し、
// レコード化そのものは Gatherer が行う
type Client struct {
	cloneBaseDir string
}

// NewClient は新しい Client を作成する
func NewClient(cloneBaseDir string) *Client {
	return &Client{cloneBaseDir: cloneBaseDir}
}

// IsRemoteURL は識別子がリモートリポジトリURLかどうかを判定する
// ローカルパス（相対・絶対）は false を返す
func IsRemoteURL(identifier string) bool {
	if strings.Contains(identifier, "://") {
		return true
	}
	// scp-like 形式 (git@github.com:user/repo.git)
	if strings.Contains(identifier, "@") && strings.Contains(identifier, ":") {
		return true
	}
	return false
}

// URLToDirectoryName はGit URLをクローン先のディレクトリ名に変換する
// 例: https://github.com/user/repo.git -> github.com/user/repo
func (c *Client) URLToDirectoryName(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")

	return filepath.Join(hostname, path), nil
}

// Materialize は識別子をローカルリポジトリパスに解決する
// リモートURLならクローン（既存ならpull）し、ローカルパスならそのまま返す
func (c *Client) Materialize(ctx context.Context, identifier, ref string) (string, error) {
	if !IsRemoteURL(identifier) {
		return identifier, nil
	}

	dirName, err := c.URLToDirectoryName(identifier)
	if err != nil {
		return "", fmt.Errorf("failed to generate directory name from URL: %w", err)
	}

	repoPath := filepath.Join(c.cloneBaseDir, dirName)
	if err := c.cloneOrPull(ctx, identifier, repoPath, ref); err != nil {
		return "", err
	}

	return repoPath, nil
}

// cloneOrPull はリポジトリが存在しない場合はクローン、存在する場合は fetch + checkout する
func (c *Client) cloneOrPull(ctx context.Context, url, destDir, ref string) error {
	gitDir := filepath.Join(destDir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		return c.clone(ctx, url, destDir)
	}
	return c.pull(ctx, destDir, ref)
}

func (c *Client) clone(ctx context.Context, url, destDir string) error {
	_, err := git.PlainCloneContext(ctx, destDir, false, &git.CloneOptions{
		URL: url,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}

func (c *Client) pull(ctx context.Context, repoPath, ref string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return fmt.Errorf("failed to get remote: %w", err)
	}

	err = remote.FetchContext(ctx, &git.FetchOptions{})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to fetch: %w", err)
	}

	if ref == "" {
		return nil
	}

	err = worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewRemoteReferenceName("origin", ref),
		Force:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to checkout: %w", err)
	}

	return nil
}
