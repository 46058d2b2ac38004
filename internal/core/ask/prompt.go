package ask

import (
	"strings"
)

// NoContextSentinel は検索結果が0件だった場合にコンテキストとして使う固定文
// 0件でも生成モデルへの問い合わせは行い、回答不能である旨を答えさせる
const NoContextSentinel = "指定されたソースに関連するコンテキストは見つかりませんでした。"

// ContextDelimiter は検索結果テキストの区切り（空行 + 水平線）
const ContextDelimiter = "\n\n---\n\n"

// BuildContext は検索結果のテキストをランキング順のまま連結してコンテキストブロックを作る
func BuildContext(texts []string) string {
	if len(texts) == 0 {
		return NoContextSentinel
	}
	return strings.Join(texts, ContextDelimiter)
}

// BuildAskPrompt はRAG質問応答用の固定形式プロンプトを構築する
func BuildAskPrompt(query, contextBlock string) string {
	var sb strings.Builder

	sb.WriteString("あなたはソースリポジトリの内容に精通した技術アシスタントです。\n")
	sb.WriteString("以下のコンテキスト情報のみを使用して、ユーザーの質問に回答してください。\n\n")

	sb.WriteString("## 回答のガイドライン\n")
	sb.WriteString("- コンテキストに含まれる情報のみを使用して回答してください\n")
	sb.WriteString("- コンテキストに回答の根拠がない場合は、推測せずにその旨を述べてください\n\n")

	sb.WriteString("## コンテキスト\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\n")

	sb.WriteString("## ユーザーの質問\n")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString("## 回答\n")

	return sb.String()
}
