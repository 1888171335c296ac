package simplify

import (
	"context"
	"strings"
	"unicode"
)

// substitutions 降级替换词表：正式/学术词汇映射到更简单的同义词
// 匹配不区分大小写，仅替换完整单词
var substitutions = map[string]string{
	"utilize":       "use",
	"utilizes":      "uses",
	"utilization":   "use",
	"demonstrate":   "show",
	"demonstrates":  "shows",
	"approximately": "about",
	"subsequently":  "later",
	"consequently":  "so",
	"furthermore":   "also",
	"nevertheless":  "but",
	"additionally":  "also",
	"facilitate":    "help",
	"facilitates":   "helps",
	"commence":      "start",
	"commences":     "starts",
	"terminate":     "end",
	"terminates":    "ends",
	"endeavor":      "try",
	"ascertain":     "find out",
	"methodology":   "method",
	"numerous":      "many",
	"sufficient":    "enough",
	"prioritize":    "rank",
	"implement":     "build",
	"implements":    "builds",
	"leverage":      "use",
	"leverages":     "uses",
	"ramifications": "effects",
	"deleterious":   "harmful",
	"elucidate":     "explain",
	"elucidates":    "explains",
	"aggregate":     "total",
	"prerequisite":  "requirement",
	"expenditure":   "cost",
	"magnitude":     "size",
	"component":     "part",
	"components":    "parts",
	"fundamental":   "basic",
	"nonetheless":   "still",
	"predominantly": "mostly",
	"in order to":   "to",
	"with regard to": "about",
	"a multitude of": "many",
}

// FallbackEngine 规则式降级引擎
// 不依赖外部服务，通过词汇替换产生确定性的简化结果
type FallbackEngine struct{}

// NewFallbackEngine 创建降级引擎
func NewFallbackEngine() *FallbackEngine {
	return &FallbackEngine{}
}

// Simplify 对文本做逐词替换，相同输入产生相同输出
func (f *FallbackEngine) Simplify(ctx context.Context, req Request) (string, error) {
	lowered := strings.ToLower(req.Text)

	// 先处理多词短语
	for phrase, simple := range substitutions {
		if !strings.Contains(phrase, " ") {
			continue
		}
		for {
			idx := strings.Index(lowered, phrase)
			if idx < 0 {
				break
			}
			lowered = lowered[:idx] + simple + lowered[idx+len(phrase):]
		}
	}

	words := strings.FieldsFunc(lowered, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	for i, word := range words {
		core, prefix, suffix := stripPunct(word)
		if simple, ok := substitutions[core]; ok {
			words[i] = prefix + simple + suffix
		}
	}

	result := strings.Join(words, " ")
	if strings.TrimSpace(result) == "" {
		result = req.Text
	}

	return capitalizeSentences(result), nil
}

func (f *FallbackEngine) Name() string {
	return "fallback"
}

func (f *FallbackEngine) Ready() bool {
	return true
}

// stripPunct 剥离首尾标点，返回(核心词, 前缀, 后缀)
func stripPunct(word string) (string, string, string) {
	start := 0
	end := len(word)
	for start < end && unicode.IsPunct(rune(word[start])) {
		start++
	}
	for end > start && unicode.IsPunct(rune(word[end-1])) {
		end--
	}
	return word[start:end], word[:start], word[end:]
}

// capitalizeSentences 恢复句首大写
func capitalizeSentences(text string) string {
	runes := []rune(text)
	capitalizeNext := true
	for i, r := range runes {
		if capitalizeNext && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			capitalizeNext = false
		}
		if r == '.' || r == '!' || r == '?' {
			capitalizeNext = true
		}
	}
	return string(runes)
}
