package sqlstore

import (
	"github.com/goliatone/go-esign/core"
	"github.com/goliatone/go-esign/webhooks"
)

var (
	_ core.TokenStore  = (*SettingsTokenStore)(nil)
	_ core.TokenStore  = (*CachedTokenStore)(nil)
	_ webhooks.Archive = (*WebhookArchive)(nil)
)
