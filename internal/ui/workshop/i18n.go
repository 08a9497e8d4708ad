// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package workshop

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/luoli0706/Ning-Prompt/internal/prompt"
)

// UI languages.
const (
	uiEnglish = "en"
	uiChinese = "zh"
)

// responseLanguages is the cycle offered for the response language. Any other
// configured value is kept until the user cycles away from it.
var responseLanguages = []string{
	prompt.LanguageOrigin, prompt.LanguageEnglish, prompt.LanguageChinese,
	"ja", "ko", "fr", "de", "es",
}

// uiText holds every user-visible string of one UI language.
type uiText struct {
	Title       string
	Subtitle    string
	Placeholder string

	Mode        string
	Temperature string
	Language    string
	Format      string
	Theme       string
	Custom      string
	SameAsInput string

	PromptPane      string
	ResultPane      string
	ResultEmpty     string
	Chars           string
	Ready           string
	Generating      string
	Cancelling      string
	Cancelled       string
	Done            string // takes the elapsed time
	NotConfigured   string
	EmptyPrompt     string
	TemplateMissing string // takes the path
	SaveFailed      string // takes the error
	TemplatesReload string

	HelpSubmit     string
	HelpCancel     string
	HelpQuit       string
	HelpNextMode   string
	HelpPrevMode   string
	HelpTempUp     string
	HelpTempDown   string
	HelpLanguage   string
	HelpFormat     string
	HelpTheme      string
	HelpUILanguage string
	HelpScrollUp   string
	HelpScrollDown string
	HelpClear      string
	HelpMore       string
}

var catalog = map[string]uiText{
	uiEnglish: {
		Title:       "Prompt Workshop",
		Subtitle:    "transform a prompt with a template",
		Placeholder: "Type or paste the prompt to transform...",

		Mode:        "Mode",
		Temperature: "Intensity",
		Language:    "Output",
		Format:      "Format",
		Theme:       "Theme",
		Custom:      "custom",
		SameAsInput: "same as prompt",

		PromptPane:      "Original prompt",
		ResultPane:      "Result",
		ResultEmpty:     "The transformed prompt appears here. Press ctrl+s to start.",
		Chars:           "%d chars",
		Ready:           "Ready",
		Generating:      "Generating...",
		Cancelling:      "Cancelling...",
		Cancelled:       "[Cancelled]",
		Done:            "Done in %s",
		NotConfigured:   "API URL or key is not configured. Run: ningprompt config set api.url URL / api.key KEY",
		EmptyPrompt:     "Enter a prompt first.",
		TemplateMissing: "Template not found: %s",
		SaveFailed:      "Could not save settings: %v",
		TemplatesReload: "Templates reloaded",

		HelpSubmit:     "transform",
		HelpCancel:     "cancel",
		HelpQuit:       "quit",
		HelpNextMode:   "next mode",
		HelpPrevMode:   "previous mode",
		HelpTempUp:     "more intense",
		HelpTempDown:   "less intense",
		HelpLanguage:   "output language",
		HelpFormat:     "output format",
		HelpTheme:      "toggle theme",
		HelpUILanguage: "中文界面",
		HelpScrollUp:   "scroll up",
		HelpScrollDown: "scroll down",
		HelpClear:      "clear result",
		HelpMore:       "more keys",
	},
	uiChinese: {
		Title:       "提示词工坊",
		Subtitle:    "用模板改写提示词",
		Placeholder: "在此输入或粘贴要改写的提示词...",

		Mode:        "模式",
		Temperature: "强度",
		Language:    "输出语言",
		Format:      "格式",
		Theme:       "主题",
		Custom:      "自定义",
		SameAsInput: "与输入相同",

		PromptPane:      "原始提示词",
		ResultPane:      "结果",
		ResultEmpty:     "改写结果将显示在这里。按 ctrl+s 开始。",
		Chars:           "%d 字符",
		Ready:           "就绪",
		Generating:      "生成中...",
		Cancelling:      "正在取消...",
		Cancelled:       "[已取消]",
		Done:            "完成，用时 %s",
		NotConfigured:   "未配置 API 地址或密钥。请运行: ningprompt config set api.url URL / api.key KEY",
		EmptyPrompt:     "请先输入提示词。",
		TemplateMissing: "找不到模板: %s",
		SaveFailed:      "无法保存设置: %v",
		TemplatesReload: "模板已重新加载",

		HelpSubmit:     "改写",
		HelpCancel:     "取消",
		HelpQuit:       "退出",
		HelpNextMode:   "下一个模式",
		HelpPrevMode:   "上一个模式",
		HelpTempUp:     "增强",
		HelpTempDown:   "减弱",
		HelpLanguage:   "输出语言",
		HelpFormat:     "输出格式",
		HelpTheme:      "切换主题",
		HelpUILanguage: "English UI",
		HelpScrollUp:   "向上滚动",
		HelpScrollDown: "向下滚动",
		HelpClear:      "清除结果",
		HelpMore:       "更多按键",
	},
}

// textFor returns the strings of lang, falling back to English.
func textFor(lang string) uiText {
	if s, ok := catalog[lang]; ok {
		return s
	}
	return catalog[uiEnglish]
}

func toggleUILanguage(lang string) string {
	if lang == uiChinese {
		return uiEnglish
	}
	return uiChinese
}

// languageName names a response language in the UI language, e.g. "ja" is
// "Japanese" in the English UI. Values that are not language tags are shown
// as typed.
func languageName(code, uiLang string) string {
	if code == prompt.LanguageOrigin {
		return textFor(uiLang).SameAsInput
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.Tags(language.Make(uiLang)).Name(tag); name != "" {
		return name
	}
	return code
}

// nextLanguage cycles through responseLanguages.
func nextLanguage(current string) string {
	for i, l := range responseLanguages {
		if l == current {
			return responseLanguages[(i+1)%len(responseLanguages)]
		}
	}
	return responseLanguages[0]
}
