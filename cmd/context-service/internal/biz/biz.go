package biz

import "github.com/google/wire"

// ProviderSet 业务层提供者集合
var ProviderSet = wire.NewSet(
	NewTiktokenCounter,
	wire.Bind(new(TokenCounter), new(*TiktokenCounter)),
	NewHistoryRetriever,
	wire.Bind(new(HistoryReader), new(*HistoryRetriever)),
	NewContextFormatter,
	wire.Bind(new(HistoryFormatter), new(*ContextFormatter)),
	NewContextUsecase,
	wire.Bind(new(ContextInvalidator), new(*ContextUsecase)),
	wire.Bind(new(ContextProvider), new(*ContextUsecase)),
	NewConversationUsecase,
	NewPromptBuilder,
)
