package train_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/djeday123/gograd/backend/cpu"
	"github.com/djeday123/gograd/data"
	"github.com/djeday123/gograd/nn"
	"github.com/djeday123/gograd/optim"
	"github.com/djeday123/gograd/train"
)

func quietTrainer(model nn.Layer, opt optim.Optimizer) *train.Trainer {
	t := train.New(model, opt)
	t.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return t
}

func TestTrainingReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ds := data.Blobs(rng, 21, 3, 4)
	loader, err := data.NewLoader(ds, 7, rand.New(rand.NewSource(12)))
	require.NoError(t, err)

	model, err := nn.NewMLP(rand.New(rand.NewSource(13)), 4, 5, 3)
	require.NoError(t, err)
	sgd := optim.NewSGD(model.Parameters(), 0.1)
	trainer := quietTrainer(model, sgd)

	means, err := trainer.Run(context.Background(), loader, 50)
	require.NoError(t, err)
	require.Len(t, means, 50)

	assert.Less(t, means[49], means[0], "mean loss after 50 epochs should drop below the first epoch")

	acc, err := trainer.Evaluate(context.Background(), loader)
	require.NoError(t, err)
	assert.Greater(t, acc, 0.8, "well separated clusters should be nearly solved")
}

func TestTrainingWithAdamW(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	ds := data.Blobs(rng, 21, 3, 4)
	loader, err := data.NewLoader(ds, 7, nil)
	require.NoError(t, err)

	model, err := nn.NewMLP(rand.New(rand.NewSource(22)), 4, 5, 3)
	require.NoError(t, err)
	aw, err := optim.NewAdamW(model.Parameters(), 0.01, 0.9, 0.999, 1e-8, 0.01)
	require.NoError(t, err)
	trainer := quietTrainer(model, aw)

	means, err := trainer.Run(context.Background(), loader, 30)
	require.NoError(t, err)
	assert.Less(t, means[len(means)-1], means[0])
}

func TestCrossEntropyOnRawScores(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	ds := data.Blobs(rng, 21, 3, 4)
	loader, err := data.NewLoader(ds, 7, nil)
	require.NoError(t, err)

	// linear-only model producing raw scores; the fused loss normalizes
	lin, err := nn.NewLinear(4, 3, rand.New(rand.NewSource(32)))
	require.NoError(t, err)
	model := nn.NewSequential(lin)
	sgd := optim.NewSGD(model.Parameters(), 0.1)

	trainer := quietTrainer(model, sgd)
	trainer.Loss = nn.CrossEntropyLoss

	means, err := trainer.Run(context.Background(), loader, 30)
	require.NoError(t, err)
	assert.Less(t, means[len(means)-1], means[0])
}

func TestRunHonorsCancellation(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	ds := data.Blobs(rng, 21, 3, 4)
	loader, err := data.NewLoader(ds, 7, nil)
	require.NoError(t, err)

	model, err := nn.NewMLP(rand.New(rand.NewSource(42)), 4, 5, 3)
	require.NoError(t, err)
	trainer := quietTrainer(model, optim.NewSGD(model.Parameters(), 0.1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = trainer.Run(ctx, loader, 10)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = trainer.Evaluate(ctx, loader)
	assert.ErrorIs(t, err, context.Canceled)
}
