// Package dto contains Data Transfer Objects for API request and response structures
package dto

// WebhookResult reports how a processor callback was handled. Ignored
// covers the benign no-ops: unknown correlation, intermediate statuses,
// and re-delivery of an already-applied status.
type WebhookResult struct {
	Processed   bool   `json:"processed" example:"true"`
	Ignored     bool   `json:"ignored" example:"false"`
	DepositUUID string `json:"deposit_uuid,omitempty"`
	Status      string `json:"status,omitempty" example:"completed"`
	Message     string `json:"message,omitempty"`
}
