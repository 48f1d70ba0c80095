package handlers

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgInvalidRequest   = "invalid request"
	msgUnauthorized     = "please sign in first"
	msgQuotaExceeded    = "daily generation limit reached, please try again tomorrow"
	msgTemplateNotFound = "template not found"
	msgTemplateDisabled = "template is disabled"
	msgContentNotFound  = "content not found"
	msgInternal         = "internal server error"
)

func init() {
	zh := map[string]string{
		msgInvalidRequest:   "请求参数错误",
		msgUnauthorized:     "请先登录",
		msgQuotaExceeded:    "今日生成次数已达上限，请明天再试",
		msgTemplateNotFound: "模板不存在",
		msgTemplateDisabled: "模板已禁用",
		msgContentNotFound:  "内容不存在",
		msgInternal:         "服务器内部错误",
	}
	for key, text := range zh {
		_ = message.SetString(language.Chinese, key, text)
		_ = message.SetString(language.English, key, key)
	}
}

func localize(locale string, key message.Reference) string {
	tag := language.English
	if locale == "zh" {
		tag = language.Chinese
	}
	return message.NewPrinter(tag).Sprintf(key)
}
