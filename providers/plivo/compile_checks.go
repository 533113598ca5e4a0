package plivo

import "github.com/goliatone/go-sms/core"

var (
	_ core.InboundHandler = (*Handler)(nil)
	_ core.SendClient     = (*Client)(nil)
)
