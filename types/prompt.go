package types

import "strings"

// Prompt 归一化后的提示词。一次提交构造一次，之后不可变；
// Normalized 同时用作结果缓存键。
type Prompt struct {
	Raw        string   `json:"raw"`
	Normalized string   `json:"normalized"`
	Tokens     []string `json:"tokens"`
}

// NormalizePrompt 归一化提示词：小写、去首尾空白、压缩连续空白、分词。
// 空白提示词返回 ok=false。
func NormalizePrompt(raw string) (*Prompt, bool) {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return nil, false
	}
	return &Prompt{
		Raw:        raw,
		Normalized: strings.Join(fields, " "),
		Tokens:     fields,
	}, true
}

// IsEmpty 是否为空提示词
func (p *Prompt) IsEmpty() bool {
	return p == nil || len(p.Tokens) == 0
}
