package biz

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/tiktoken-go/tokenizer"

	"numerologist/pkg/monitoring"
)

// DefaultTokenModel 默认分词模型
const DefaultTokenModel = "gpt-4o"

// TokenModel 分词所用的模型名
type TokenModel string

// TokenCounter 统计文本 token 数
type TokenCounter interface {
	CountTokens(text, model string) int
}

type codecEntry struct {
	codec tokenizer.Codec
	err   error
}

// TiktokenCounter 基于 tiktoken 编码表的计数器，模型不支持或编码失败时退化为字符估算
type TiktokenCounter struct {
	codecs sync.Map // model -> *codecEntry
	log    *log.Helper
}

// NewTiktokenCounter 创建计数器
func NewTiktokenCounter(logger log.Logger) *TiktokenCounter {
	return &TiktokenCounter{
		log: log.NewHelper(log.With(logger, "module", "token-counter")),
	}
}

// CountTokens 返回 text 在 model 下的 token 数，空串为 0，永不失败
func (c *TiktokenCounter) CountTokens(text, model string) int {
	if text == "" {
		return 0
	}
	if model == "" {
		model = DefaultTokenModel
	}

	n, err := c.count(text, model)
	if err == nil {
		return n
	}

	c.log.Debugf("tokenizer unavailable for model %s, using estimate: %v", model, err)
	monitoring.TokenizerFallbacksTotal.WithLabelValues(model).Inc()
	return EstimateTokens(text)
}

func (c *TiktokenCounter) count(text, model string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()

	codec, err := c.codec(model)
	if err != nil {
		return 0, err
	}
	return codec.Count(text)
}

func (c *TiktokenCounter) codec(model string) (tokenizer.Codec, error) {
	if v, ok := c.codecs.Load(model); ok {
		entry := v.(*codecEntry)
		return entry.codec, entry.err
	}

	codec, err := tokenizer.ForModel(tokenizer.Model(model))
	v, _ := c.codecs.LoadOrStore(model, &codecEntry{codec: codec, err: err})
	entry := v.(*codecEntry)
	return entry.codec, entry.err
}

// EstimateTokens 按 4 字符约 1 token 估算，向上取整
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	return (runes + 3) / 4
}
