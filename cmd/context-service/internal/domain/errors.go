package domain

import "errors"

var (
	// ErrConversationNotFound 对话未找到
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConversationAlreadyEnded 对话已结束
	ErrConversationAlreadyEnded = errors.New("conversation already ended")

	// ErrUnauthorized 未授权
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidArgument 参数错误
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRetrievalFailed 历史对话读取失败
	ErrRetrievalFailed = errors.New("conversation history retrieval failed")

	// ErrContextNotCached 上下文缓存未命中
	ErrContextNotCached = errors.New("conversation context not cached")
)
