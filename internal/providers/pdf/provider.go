package pdf

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Provider renders printable documents.
type Provider interface {
	RenderStatement(ctx context.Context, doc StatementDocument) ([]byte, error)
}

// NoOpProvider renders nothing. It stands in where PDF output is disabled.
type NoOpProvider struct{}

func (p *NoOpProvider) RenderStatement(ctx context.Context, doc StatementDocument) ([]byte, error) {
	return nil, nil
}
