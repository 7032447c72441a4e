// Package core contains the e-signature integration contracts shared by the
// token manager, the envelope builder and the webhook pipeline: configuration,
// the error taxonomy, token records and stores, and the notification
// subscription descriptor. Adapters depend on core; core does not depend on
// adapters.
package core
