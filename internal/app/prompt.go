package app

import (
	"fmt"
	"strings"

	"ragchat/internal/model"
)

const systemPromptWithSummary = `你是一个友好、专业的AI助手。

## 对话背景
以下是之前对话的摘要，请在回答时参考：
%s
`

const systemPromptWithRAG = `你是一个友好、专业的AI助手。

%s

## 参考资料
以下是从用户文件中检索到的相关内容。当用户提到"这个文件"、"文件里"、"文档中"等表述时，请基于这些内容回答。
如果检索内容来自多个文件，请在回答中明确说明信息来源。

%s

请基于以上参考资料回答用户的问题。如果参考资料与问题无关，可以忽略并直接回答。
`

const systemPromptFull = `你是一个友好、专业的AI助手。

## 对话背景
以下是之前对话的摘要，请在回答时参考：
%s

%s

## 参考资料
以下是从用户文件中检索到的相关内容。当用户提到"这个文件"、"文件里"、"文档中"等表述时，请基于这些内容回答。
如果检索内容来自多个文件，请在回答中明确说明信息来源。

%s

请基于以上参考资料回答用户的问题。如果参考资料与问题无关，可以忽略并直接回答。
`

const summaryPrompt = `请将以下对话历史总结为简洁的摘要，保留关键信息、用户偏好和重要上下文。
摘要应该：
1. 概括对话的主要话题和结论
2. 保留用户明确表达的偏好或要求
3. 记录任何重要的决策或待办事项
4. 控制在300字以内

对话历史：
%s

请直接输出摘要内容，不要有多余的开头或解释。`

// buildSystemPrompt assembles the system prompt from the conversation
// summary, the uploaded file list and the retrieved context. Returns ""
// when there is nothing to inject.
func buildSystemPrompt(summary, ragContext string, fileNames []string) string {
	summary = strings.TrimSpace(summary)
	ragContext = strings.TrimSpace(ragContext)
	if summary == "" && ragContext == "" {
		return ""
	}

	fileContext := formatFileList(fileNames)

	if summary != "" && ragContext == "" {
		return fmt.Sprintf(systemPromptWithSummary, summary)
	}
	if ragContext != "" && summary == "" {
		return fmt.Sprintf(systemPromptWithRAG, fileContext, ragContext)
	}
	return fmt.Sprintf(systemPromptFull, summary, fileContext, ragContext)
}

func formatFileList(fileNames []string) string {
	if len(fileNames) == 0 {
		return ""
	}
	if len(fileNames) == 1 {
		return fmt.Sprintf("用户在当前会话中上传了文件：%s", fileNames[0])
	}
	lines := make([]string, len(fileNames))
	for i, name := range fileNames {
		lines[i] = "  - " + name
	}
	return "用户在当前会话中上传了以下文件：\n" + strings.Join(lines, "\n")
}

// buildSummaryPrompt renders the history as labelled turns inside the
// summarization instruction.
func buildSummaryPrompt(messages []model.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		label := "AI"
		if msg.Role == model.RoleUser {
			label = "用户"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, msg.Content))
	}
	return fmt.Sprintf(summaryPrompt, strings.Join(lines, "\n"))
}
