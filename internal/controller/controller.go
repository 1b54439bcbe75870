// Package controller maps user input to a query followed by a render.
package controller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/presenter"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/quotesearch/pkg/logger"
)

const KeyEnter = "Enter"

// Querier is satisfied by *executor.Executor.
type Querier interface {
	Execute(ctx context.Context, text string) (*executor.SearchResult, error)
}

type Controller struct {
	querier   Querier
	presenter *presenter.Presenter
	formatter presenter.DateFormatter
	logger    *slog.Logger
}

func New(q Querier, p *presenter.Presenter, f presenter.DateFormatter) *Controller {
	return &Controller{
		querier:   q,
		presenter: p,
		formatter: f,
		logger:    slog.Default().With("component", "input-controller"),
	}
}

// KeyPress handles a key event from the search field. Enter submits value
// and asks the surface to suppress its default action; other keys do
// nothing.
func (c *Controller) KeyPress(ctx context.Context, key, value string) (suppressDefault bool, err error) {
	if key != KeyEnter {
		return false, nil
	}
	return true, c.Submit(ctx, value)
}

// Submit queries value and renders the results. Before the collection is
// ready it leaves the view untouched and returns nil.
func (c *Controller) Submit(ctx context.Context, value string) error {
	res, err := c.querier.Execute(ctx, value)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotReady) || errors.Is(err, apperrors.ErrLoadFailed) {
			logger.FromContext(ctx).Debug("query ignored, collection not ready", "error", err)
			return nil
		}
		return err
	}
	c.presenter.Render(c.formatter.Records(res.Documents))
	return nil
}
