package railway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/railpulse/internal/graphql"
	"github.com/tidwall/gjson"
)

// BatchSize is how many deployment lookups share one round trip.
const BatchSize = 5

// timestampLayout is ISO-8601 with fractional seconds.
const timestampLayout = time.RFC3339Nano

// Executor runs a single GraphQL request. [*graphql.Client] implements it.
type Executor interface {
	Execute(ctx context.Context, req graphql.Request, token string, out any) error
}

// DeploymentRequest identifies one latest-deployment lookup and where its
// result belongs in the project tree.
type DeploymentRequest struct {
	ProjectIndex  int
	ServiceIndex  int
	ServiceID     string
	EnvironmentID string
}

// Batcher resolves latest deployments using alias-multiplexed queries.
type Batcher struct {
	exec      Executor
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// NewBatcher creates a [Batcher] issuing [BatchSize] lookups per request.
func NewBatcher(exec Executor, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		exec:      exec,
		batchSize: BatchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// FetchLatest returns one entry per request, in request order. An entry is
// nil when the service has no deployment in that environment. The first
// failing batch aborts the whole call.
func (b *Batcher) FetchLatest(ctx context.Context, token string, reqs []DeploymentRequest) ([]*Deployment, error) {
	results := make([]*Deployment, 0, len(reqs))

	for start := 0; start < len(reqs); start += b.batchSize {
		end := start + b.batchSize
		if end > len(reqs) {
			end = len(reqs)
		}

		chunk, err := b.fetchChunk(ctx, token, reqs[start:end])
		if err != nil {
			return nil, fmt.Errorf("deployment batch %d-%d: %w", start, end-1, err)
		}
		results = append(results, chunk...)
	}

	return results, nil
}

// fetchChunk issues one round trip for up to batchSize lookups. The response
// is keyed by alias, so results are read back by alias in request order.
func (b *Batcher) fetchChunk(ctx context.Context, token string, chunk []DeploymentRequest) ([]*Deployment, error) {
	var data json.RawMessage
	if err := b.exec.Execute(ctx, graphql.Request{Query: BuildBatchQuery(chunk)}, token, &data); err != nil {
		return nil, err
	}

	out := make([]*Deployment, len(chunk))
	for i := range chunk {
		node := gjson.GetBytes(data, alias(i)+".edges.0.node")
		if !node.IsObject() {
			continue
		}
		out[i] = &Deployment{
			ID:        node.Get("id").String(),
			Status:    ParseDeploymentStatus(node.Get("status").String()),
			CreatedAt: b.parseTimestamp(node.Get("createdAt").String()),
		}
	}
	return out, nil
}

// parseTimestamp parses an ISO-8601 timestamp that carries fractional
// seconds. Anything else falls back to the current time.
func (b *Batcher) parseTimestamp(raw string) time.Time {
	t, err := time.Parse(timestampLayout, raw)
	if err != nil || !hasFractionalSeconds(raw) {
		b.logger.Debug("unparseable deployment timestamp", "value", raw)
		return b.now()
	}
	return t
}

// hasFractionalSeconds reports whether raw has a '.' right after the seconds
// field of a YYYY-MM-DDTHH:MM:SS prefix.
func hasFractionalSeconds(raw string) bool {
	const secondsEnd = len("2006-01-02T15:04:05")
	return len(raw) > secondsEnd && raw[secondsEnd] == '.'
}
