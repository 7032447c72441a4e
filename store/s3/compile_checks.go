package s3store

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goliatone/go-esign/webhooks"
)

var (
	_ webhooks.Archive = (*Archive)(nil)
	_ ObjectPutter     = (*s3.Client)(nil)
)
