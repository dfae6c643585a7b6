package llm

import "strings"

const systemPrompt = "あなたはエンターテインメントと文化に関する専門家です。日本のユーザー向けに情報を提供します。"

const artistOnlyNote = "※必ず音楽アーティストのみを提案してください。バンド、ソロアーティスト、グループなど、音楽活動を主とする方々に限定します。"

const promptTemplate = `
以下のアイテムに関連する{{label}}を10個提案してください。
{{note}}

関連性の基準:
- 同じ雰囲気やスタイル
- 共通のファン層
- コラボレーション経験
- 同時期の活動や影響関係
- 同じジャンルやカテゴリー

アイテム: {{query}}

注意事項:
- 必ず日本語で回答してください
- 日本語名が一般的な場合は日本語表記を優先してください
- 海外アーティストや作品でも、日本での一般的な呼び方がある場合はそちらを使用してください

回答は以下のJSON形式で提供してください:
{
  "items": [
    {
      "name": "アイテム名",
      "reason": "関連性の説明（200文字以内）",
      "features": ["特徴1", "特徴2", "特徴3"]
    }
  ]
}
`

// BuildPrompt renders the user message asking for items related to query in the labelled category.
func BuildPrompt(query, label string) string {
	note := ""
	if label == "音楽アーティスト" {
		note = artistOnlyNote
	}
	return strings.NewReplacer(
		"{{label}}", label,
		"{{note}}", note,
		"{{query}}", query,
	).Replace(promptTemplate)
}
