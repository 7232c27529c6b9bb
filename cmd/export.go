package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harborpoint/lendops/internal/export"
	"github.com/harborpoint/lendops/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reviews to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		reviews, err := st.ListReviews(cmd.Context(), store.ReviewFilter{Limit: 10000})
		if err != nil {
			return err
		}

		if err := export.WriteReviewsXLSX(exportOut, reviews); err != nil {
			return err
		}
		zap.L().Info("reviews exported",
			zap.String("path", exportOut),
			zap.Int("count", len(reviews)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "reviews.xlsx", "output path")
	rootCmd.AddCommand(exportCmd)
}
