package executor

import (
	"context"
	"time"

	"github.com/hanpama/gqlexec/internal/eventbus"
	"github.com/hanpama/gqlexec/internal/events"
)

func publishFieldFinish(ctx context.Context, t *fieldTask, duration time.Duration) {
	eventbus.Publish(ctx, events.FieldFinish{
		OperationName: t.state.operation.Name,
		ParentType:    t.field.ObjectType.Name,
		Field:         t.field.Field.Name,
		Key:           t.field.Key,
		Aborted:       t.aborted,
		Duration:      duration,
	})
}
