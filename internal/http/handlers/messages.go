package handlers

// Error codes returned in the error envelope.
const (
	codeInvalidArgument     = "invalid_argument"
	codeUnauthenticated     = "unauthenticated"
	codeInsufficientCredits = "insufficient_credits"
	codeUpstreamError       = "upstream_error"
	codeMalformedUpstream   = "malformed_upstream_response"
	codeNotFound            = "not_found"
	codeInternal            = "internal"
)

// The original product is bilingual; defaults cover both locales.
var defaultMessages = map[string]map[string]string{
	codeInvalidArgument: {
		"en": "prompt is required",
		"zh": "缺少必要的提示词参数",
	},
	codeUnauthenticated: {
		"en": "user not signed in",
		"zh": "用户未登录",
	},
	codeInsufficientCredits: {
		"en": "not enough credits",
		"zh": "用户点数不足",
	},
	codeUpstreamError: {
		"en": "image generation service failed",
		"zh": "图像生成服务调用失败",
	},
	codeMalformedUpstream: {
		"en": "image generation returned no results",
		"zh": "获取图片失败",
	},
	codeNotFound: {
		"en": "task not found",
		"zh": "任务不存在",
	},
	codeInternal: {
		"en": "internal server error",
		"zh": "服务器内部错误",
	},
}

func localizedMessage(code, locale string) string {
	msgs, ok := defaultMessages[code]
	if !ok {
		return code
	}
	if msg, ok := msgs[locale]; ok {
		return msg
	}
	return msgs["en"]
}
