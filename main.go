// Command gograd trains a small feed-forward classifier with the gograd
// autodiff engine, either on an IDX image/label pair (the standard
// handwritten-digit layout) or on a built-in synthetic dataset.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/djeday123/gograd/backend/cpu"
	"github.com/djeday123/gograd/data"
	"github.com/djeday123/gograd/nn"
	"github.com/djeday123/gograd/optim"
	"github.com/djeday123/gograd/train"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		imagesPath string
		labelsPath string
		epochs     int
		batchSize  int
		lr         float64
		hidden     []int
		seed       int64
		optName    string
	)

	cmd := &cobra.Command{
		Use:          "gograd",
		Short:        "Train a multilayer perceptron classifier",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := rand.New(rand.NewSource(seed))

			var (
				ds      *data.Dataset
				classes int
				err     error
			)
			if imagesPath != "" {
				ds, err = data.LoadIDX(imagesPath, labelsPath)
				if err != nil {
					return err
				}
				classes = 10
			} else {
				slog.Info("no dataset given, using synthetic blobs")
				ds = data.Blobs(rng, 600, 3, 16)
				classes = 3
			}

			sizes := append([]int{ds.Features()}, hidden...)
			sizes = append(sizes, classes)
			model, err := nn.NewMLP(rng, sizes...)
			if err != nil {
				return err
			}

			var opt optim.Optimizer
			switch optName {
			case "sgd":
				opt = optim.NewSGD(model.Parameters(), float32(lr))
			case "adamw":
				opt, err = optim.NewAdamW(model.Parameters(), lr, 0.9, 0.999, 1e-8, 0.01)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown optimizer %q", optName)
			}

			loader, err := data.NewLoader(ds, batchSize, rng)
			if err != nil {
				return err
			}

			slog.Info("training", "examples", ds.Len(), "features", ds.Features(),
				"layers", sizes, "epochs", epochs, "lr", lr, "optimizer", optName)

			tr := train.New(model, opt)
			if _, err := tr.Run(cmd.Context(), loader, epochs); err != nil {
				return err
			}

			acc, err := tr.Evaluate(cmd.Context(), loader)
			if err != nil {
				return err
			}
			slog.Info("evaluation", "accuracy", acc)

			return showSample(model, loader)
		},
	}

	cmd.Flags().StringVar(&imagesPath, "images", "", "IDX image file (optionally .gz)")
	cmd.Flags().StringVar(&labelsPath, "labels", "", "IDX label file (optionally .gz)")
	cmd.Flags().IntVar(&epochs, "epochs", 5, "training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", 64, "batch size")
	cmd.Flags().Float64Var(&lr, "lr", 0.1, "learning rate")
	cmd.Flags().IntSliceVar(&hidden, "hidden", []int{128, 64}, "hidden layer sizes")
	cmd.Flags().Int64Var(&seed, "seed", 42, "rng seed")
	cmd.Flags().StringVar(&optName, "optimizer", "sgd", "optimizer: sgd or adamw")
	cmd.MarkFlagsRequiredTogether("images", "labels")
	return cmd
}

// showSample prints the class-probability vector for the first example of
// the next batch.
func showSample(model nn.Layer, loader data.Loader) error {
	loader.Reset()
	batch, err := loader.Next()
	if err != nil {
		return err
	}
	logits, err := model.Forward(nil, batch.Inputs)
	if err != nil {
		return err
	}
	probs, err := nn.Probabilities(logits)
	if err != nil {
		return err
	}
	cols := probs.Shape[1]
	row := probs.Float32()[:cols]
	fmt.Printf("label %d, class probabilities:\n", batch.Labels.Int64()[0])
	for class, p := range row {
		fmt.Printf("  %2d: %6.4f\n", class, p)
	}
	return nil
}
