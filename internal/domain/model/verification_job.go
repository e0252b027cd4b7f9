package model

import "time"

// VerificationJob is the durable unit of work for server-side purchase
// verification. The attempt counter rides in the record so a process restart
// cannot reset it.
type VerificationJob struct {
	ID         string         `json:"id"`
	Purchase   PurchaseRecord `json:"purchase"`
	Attempt    int            `json:"attempt"`
	EnqueuedAt time.Time      `json:"enqueuedAt"`
}
