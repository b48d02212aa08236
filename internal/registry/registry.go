package registry

import (
	"context"
	"time"
)

// Record is one session's entry in the external session registry.
type Record struct {
	ClientID      string    `dynamodbav:"client_id"`
	ConnectionRef string    `dynamodbav:"connection_ref"`
	LastActive    time.Time `dynamodbav:"last_active,unixtime"`
}

// Registry is the session registry collaborator. Failures are non-fatal to
// sessions; callers log and continue.
type Registry interface {
	PutRecord(ctx context.Context, rec Record) error
	DeleteRecord(ctx context.Context, clientID string) error
}
