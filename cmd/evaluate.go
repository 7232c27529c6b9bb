package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harborpoint/lendops/internal/model"
	"github.com/harborpoint/lendops/internal/store"
)

var (
	evaluateDir         string
	evaluateSave        bool
	evaluateConcurrency int
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [input.json]",
	Short: "Evaluate review inputs offline",
	Long:  "Runs the decision engine against a JSON ReviewInput file (or every .json file in --dir) and prints the outputs. Use --save to persist review records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}

		var paths []string
		switch {
		case evaluateDir != "":
			entries, err := os.ReadDir(evaluateDir)
			if err != nil {
				return eris.Wrapf(err, "read dir %s", evaluateDir)
			}
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
					paths = append(paths, filepath.Join(evaluateDir, e.Name()))
				}
			}
		case len(args) == 1:
			paths = args
		default:
			return eris.New("provide an input file or --dir")
		}

		var st store.Store
		if evaluateSave {
			s, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			st = s
		}

		g, gctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(evaluateConcurrency)

		for _, path := range paths {
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}
				var input model.ReviewInput
				if err := json.Unmarshal(data, &input); err != nil {
					return eris.Wrapf(err, "parse %s", path)
				}

				output, err := eng.Evaluate(input)
				if err != nil {
					return eris.Wrapf(err, "evaluate %s", path)
				}

				if st != nil {
					review, err := st.CreateReview(gctx, input, output, "cli")
					if err != nil {
						return err
					}
					zap.L().Info("review saved",
						zap.String("review_id", review.ID),
						zap.String("file", path),
					)
				}

				out, err := json.MarshalIndent(output, "", "  ")
				if err != nil {
					return eris.Wrap(err, "marshal output")
				}
				fmt.Printf("%s:\n%s\n", path, out)
				return nil
			})
		}

		return g.Wait()
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateDir, "dir", "", "evaluate every .json file in a directory")
	evaluateCmd.Flags().BoolVar(&evaluateSave, "save", false, "persist review records")
	evaluateCmd.Flags().IntVar(&evaluateConcurrency, "concurrency", 4, "max concurrent evaluations with --dir")
	rootCmd.AddCommand(evaluateCmd)
}
