// Package webhooks ingests envelope status notifications.
//
// Every identified notification is archived under a key derived from the
// envelope id and the provider's generation timestamp, so redelivery of the
// same snapshot rewrites the same key. Completed and Signed snapshots then
// trigger the correlated business record's completion effect. The pipeline
// does not deduplicate that effect; records must tolerate repeat calls.
package webhooks
