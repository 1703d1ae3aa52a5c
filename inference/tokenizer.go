package inference

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// promptTokenizer 用 tiktoken 估算提示词 token 数，供日志与配额统计参考。
// 编码表懒加载；加载失败时退化为按字符近似。
type promptTokenizer struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func newPromptTokenizer() *promptTokenizer {
	return &promptTokenizer{}
}

func (t *promptTokenizer) estimate(text string) int {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			t.enc = enc
		}
	})
	if t.enc == nil {
		// 粗略近似：每 4 字符一个 token
		n := len(text) / 4
		if n == 0 && text != "" {
			n = 1
		}
		return n
	}
	return len(t.enc.Encode(text, nil, nil))
}
