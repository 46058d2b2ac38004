package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// ignoreFilter は .gitignore と .repoRagignore のパターンマッチングを提供する
// コミット済みでもRAGコンテキストとして無意味なファイル（ロックファイル等）を
// デフォルトパターンで除外する
type ignoreFilter struct {
	patterns *gitignore.GitIgnore
}

// newIgnoreFilter は repoPath 配下の ignore ファイルを読み込んでフィルタを作成する
func newIgnoreFilter(repoPath string) (*ignoreFilter, error) {
	var patterns []string

	for _, name := range []string{".gitignore", ".repoRagignore"} {
		path := filepath.Join(repoPath, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		lines, err := readIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		patterns = append(patterns, lines...)
	}

	patterns = append(patterns, defaultIgnorePatterns...)

	return &ignoreFilter{
		patterns: gitignore.CompileIgnoreLines(patterns...),
	}, nil
}

// ShouldIgnore はパスが除外対象かどうかを判定する
func (f *ignoreFilter) ShouldIgnore(path string) bool {
	if f.patterns == nil {
		return false
	}
	return f.patterns.MatchesPath(path)
}

// defaultIgnorePatterns はリポジトリ設定に関わらず常に除外するパターン
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"*.min.js",
	"*.min.css",
	"*.map",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"go.sum",
	"Cargo.lock",
	"Gemfile.lock",
	"poetry.lock",
}

// readIgnoreFile は ignore ファイルを読み込み、空行とコメント行を除いて返す
func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	return patterns, nil
}
