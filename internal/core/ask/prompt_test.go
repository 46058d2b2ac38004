package ask

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildContextJoinsTextsInOrder(t *testing.T) {
	context := BuildContext([]string{"first", "second", "third"})

	assert.Equal(t, "first\n\n---\n\nsecond\n\n---\n\nthird", context)
}

func TestBuildContextReturnsSentinelForZeroMatches(t *testing.T) {
	assert.Equal(t, NoContextSentinel, BuildContext(nil))
	assert.Equal(t, NoContextSentinel, BuildContext([]string{}))
}

func TestBuildAskPromptContainsContextAndQuery(t *testing.T) {
	prompt := BuildAskPrompt("what changed", "some context")

	assert.Contains(t, prompt, "## コンテキスト\nsome context\n")
	assert.Contains(t, prompt, "## ユーザーの質問\nwhat changed\n")
	assert.True(t, strings.HasSuffix(prompt, "## 回答\n"))
}

func TestBuildAskPromptEmbedsSentinelVerbatim(t *testing.T) {
	prompt := BuildAskPrompt("anything", BuildContext(nil))

	assert.Contains(t, prompt, "## コンテキスト\n"+NoContextSentinel+"\n")
}
