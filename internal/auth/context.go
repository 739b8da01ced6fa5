package auth

import (
	"context"
	"errors"
)

type ctxKey int

const ctxWorkerID ctxKey = iota

func WithWorker(ctx context.Context, workerID string) context.Context {
	return context.WithValue(ctx, ctxWorkerID, workerID)
}

func WorkerID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxWorkerID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("worker_id not in context")
}
