package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewCommitRecord(t *testing.T) {
	date := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	record := NewCommitRecord(CommitData{
		Hash:    "abc123",
		Author:  "alice",
		Date:    date,
		Message: "fix bug",
	})

	assert.Equal(t, "commit-abc123", record.ID)
	assert.Equal(t, "Commit: abc123\nAuthor: alice\nDate: 2025-06-01T12:30:00Z\nMessage: fix bug", record.Text)
	assert.Equal(t, string(SourceTypeCommit), record.Metadata[MetaKeySourceType])
	assert.Equal(t, record.Text, record.Metadata[MetaKeyText])
	assert.NotContains(t, record.Metadata, MetaKeyPath)
}

func TestNewFileRecord(t *testing.T) {
	record := NewFileRecord("README.md", "hello")

	assert.Equal(t, "file-README.md", record.ID)
	assert.Equal(t, "File: README.md\n\nhello", record.Text)
	assert.Equal(t, string(SourceTypeFile), record.Metadata[MetaKeySourceType])
	assert.Equal(t, "README.md", record.Metadata[MetaKeyPath])
	assert.Equal(t, record.Text, record.Metadata[MetaKeyText])
}
