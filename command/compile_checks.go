package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ProcessWebhookMessage] = (*ProcessWebhookCommand)(nil)
	_ gocmd.Commander[SendMessage]           = (*SendMessageCommand)(nil)
	_ gocmd.Commander[CheckRateLimitMessage] = (*CheckRateLimitCommand)(nil)
	_ gocmd.Commander[SweepBucketsMessage]   = (*SweepBucketsCommand)(nil)
)
