// Package dispatcher sends pipeline commands to the backend and applies their
// acknowledged effects to the store.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"pipeline-dashboard-go/internal/backend"
	"pipeline-dashboard-go/internal/models"
	"pipeline-dashboard-go/internal/store"

	"go.uber.org/zap"
)

// UnreachableMessage is shown when a command got no response from the backend.
const UnreachableMessage = "Could not reach the trading service. Please try again."

// ErrInvalidCommand is returned when a command is rejected before being sent.
var ErrInvalidCommand = errors.New("invalid command")

// Notifier receives the outcome of every command.
type Notifier interface {
	Show(text string, success bool) models.Message
}

// Dispatcher runs start, stop, edit and delete commands. Collections are only
// mutated once the backend acknowledged the command with success; the
// outcome is always surfaced through the notifier.
type Dispatcher struct {
	client   backend.ClientInterface
	store    *store.Store
	notifier Notifier
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(client backend.ClientInterface, st *store.Store, notifier Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		client:   client,
		store:    st,
		notifier: notifier,
		logger:   logger.Named("dispatcher"),
	}
}

// Start starts a new pipeline and upserts the returned record.
func (d *Dispatcher) Start(ctx context.Context, params models.PipelineParams) (*models.CommandResponse, error) {
	if err := params.Validate(); err != nil {
		return nil, d.reject(err)
	}

	resp, err := d.client.StartBot(ctx, params)
	return d.settle(resp, err, "start", upsert)
}

// Edit changes a stopped pipeline and upserts the returned record.
func (d *Dispatcher) Edit(ctx context.Context, pipelineID int64, params models.PipelineParams) (*models.CommandResponse, error) {
	params.PipelineID = pipelineID
	if err := params.Validate(); err != nil {
		return nil, d.reject(err)
	}
	if p, ok := d.store.Pipeline(pipelineID); ok && p.Active {
		return nil, d.reject(fmt.Errorf("pipeline %d must be stopped before editing", pipelineID))
	}

	resp, err := d.client.EditBot(ctx, params)
	return d.settle(resp, err, "edit", upsert)
}

// Stop stops a pipeline and replaces the known record with the returned one.
func (d *Dispatcher) Stop(ctx context.Context, pipelineID int64) (*models.CommandResponse, error) {
	resp, err := d.client.StopBot(ctx, pipelineID)
	return d.settle(resp, err, "stop", func(p *models.Pipeline) store.Action {
		if p == nil {
			return nil
		}
		return store.PipelineReplaced{Pipeline: *p}
	})
}

// Delete deletes a pipeline together with the positions it owns.
func (d *Dispatcher) Delete(ctx context.Context, pipelineID int64) (*models.CommandResponse, error) {
	resp, err := d.client.DeleteBot(ctx, pipelineID)
	return d.settle(resp, err, "delete", func(*models.Pipeline) store.Action {
		return store.PipelineRemoved{ID: pipelineID}
	})
}

func upsert(p *models.Pipeline) store.Action {
	if p == nil {
		return nil
	}
	return store.PipelineUpserted{Pipeline: *p}
}

// settle applies the effect of an acknowledged command and notifies its
// outcome. effect receives the returned pipeline, which may be nil, and
// returns nil when there is nothing to apply.
func (d *Dispatcher) settle(resp *models.CommandResponse, err error, command string, effect func(*models.Pipeline) store.Action) (*models.CommandResponse, error) {
	l := d.logger.With(zap.String("command", command))

	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty response", backend.ErrTransport)
	}
	if err != nil {
		l.Error("Command did not reach the backend", zap.Error(err))
		d.notifier.Show(UnreachableMessage, false)
		return nil, err
	}

	if resp.Success {
		if action := effect(resp.Pipeline); action != nil {
			d.store.Dispatch(action)
		} else {
			l.Warn("Successful command returned no pipeline, collection left untouched")
		}
	}

	l.Info("Command settled", zap.Bool("success", resp.Success), zap.String("message", resp.Message))
	d.notifier.Show(resp.Message, resp.Success)
	return resp, nil
}

func (d *Dispatcher) reject(err error) error {
	d.notifier.Show(err.Error(), false)
	return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
}
