package utils

import (
	"context"

	"github.com/google/uuid"
)

type runIDKey struct{}

func GetRunIDFromCtx(ctx context.Context) string {
	runID, ok := ctx.Value(runIDKey{}).(string)
	if !ok {
		return ""
	}
	return runID
}

// CreateCtxWithRunID tags ctx with runID, generating a new one when empty.
func CreateCtxWithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		runID = uuid.NewString()
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}
