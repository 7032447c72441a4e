package webhooks

import "context"

// Record is the business entity correlated to an envelope.
type Record interface {
	OnCompleted(ctx context.Context) error
}

// RecordFinder looks up the record for an envelope. A miss is (nil, false,
// nil), not an error.
type RecordFinder interface {
	FindByEnvelopeID(ctx context.Context, envelopeID string) (Record, bool, error)
}

type RecordFinderFunc func(ctx context.Context, envelopeID string) (Record, bool, error)

func (f RecordFinderFunc) FindByEnvelopeID(ctx context.Context, envelopeID string) (Record, bool, error) {
	return f(ctx, envelopeID)
}

type noRecords struct{}

func (noRecords) FindByEnvelopeID(context.Context, string) (Record, bool, error) {
	return nil, false, nil
}
