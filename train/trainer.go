// Package train orchestrates epochs over batches: zero gradients, forward,
// loss, backward, optimizer step, bookkeeping. One batch is fully processed
// before the next begins; cancellation is only honored at batch boundaries,
// so an interrupted run always leaves parameters and gradients consistent.
package train

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"github.com/djeday123/gograd/autograd"
	"github.com/djeday123/gograd/data"
	"github.com/djeday123/gograd/nn"
	"github.com/djeday123/gograd/optim"
	"github.com/djeday123/gograd/tensor"
)

// LossFunc computes a scalar loss from model output and labels, recording
// its node on g.
type LossFunc func(g *autograd.Graph, output, labels *tensor.Tensor) (*tensor.Tensor, error)

// Trainer runs the training loop over a model and optimizer.
type Trainer struct {
	Model  nn.Layer
	Opt    optim.Optimizer
	Loss   LossFunc
	Logger *slog.Logger
}

// New creates a trainer. Loss defaults to NLLLoss (the model is expected to
// end in LogSoftmax); Logger defaults to slog.Default().
func New(model nn.Layer, opt optim.Optimizer) *Trainer {
	return &Trainer{
		Model:  model,
		Opt:    opt,
		Loss:   nn.NLLLoss,
		Logger: slog.Default(),
	}
}

// Run trains for the given number of epochs and returns the mean loss per
// epoch. A fresh graph is built for every batch; gradients are zeroed before
// each forward pass so one batch's accumulation never leaks into the next.
func (t *Trainer) Run(ctx context.Context, loader data.Loader, epochs int) ([]float64, error) {
	means := make([]float64, 0, epochs)
	for epoch := 1; epoch <= epochs; epoch++ {
		loader.Reset()
		var losses []float64
		for {
			if err := ctx.Err(); err != nil {
				return means, err
			}
			batch, err := loader.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return means, err
			}
			loss, err := t.step(batch)
			if err != nil {
				return means, err
			}
			losses = append(losses, float64(loss))
		}
		mean := stat.Mean(losses, nil)
		means = append(means, mean)
		t.Logger.Info("epoch complete", "epoch", epoch, "batches", len(losses), "mean_loss", mean)
	}
	return means, nil
}

// step processes one batch: zero gradients, forward, loss, backward, update.
func (t *Trainer) step(batch data.Batch) (float32, error) {
	if err := t.Opt.ZeroGrad(); err != nil {
		return 0, err
	}
	g := autograd.NewGraph()
	out, err := t.Model.Forward(g, batch.Inputs)
	if err != nil {
		return 0, err
	}
	loss, err := t.Loss(g, out, batch.Labels)
	if err != nil {
		return 0, err
	}
	if err := g.Backward(loss); err != nil {
		return 0, err
	}
	if err := t.Opt.Step(); err != nil {
		return 0, err
	}
	return loss.Item()
}

// Evaluate runs a forward pass over the loader without gradient tracking and
// returns classification accuracy.
func (t *Trainer) Evaluate(ctx context.Context, loader data.Loader) (float64, error) {
	loader.Reset()
	var correct, total int
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		batch, err := loader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		out, err := t.Model.Forward(nil, batch.Inputs)
		if err != nil {
			return 0, err
		}
		rows, cols := out.Shape[0], out.Shape[1]
		scores := out.Float32()
		labels := batch.Labels.Int64()
		for i := 0; i < rows; i++ {
			row := scores[i*cols : (i+1)*cols]
			best := 0
			for j, v := range row {
				if v > row[best] {
					best = j
				}
			}
			if int64(best) == labels[i] {
				correct++
			}
			total++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(correct) / float64(total), nil
}
