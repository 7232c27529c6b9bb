package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harborpoint/lendops/internal/model"
	"github.com/harborpoint/lendops/internal/store"
)

var (
	reviewsType      string
	reviewsStatus    string
	reviewsLoanID    string
	reviewsProjectID string
	reviewsLimit     int
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Inspect persisted review records",
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.ReviewFilter{
			LoanID:    reviewsLoanID,
			ProjectID: reviewsProjectID,
			Limit:     reviewsLimit,
		}
		if reviewsType != "" {
			kind, err := model.ParseReviewKind(reviewsType)
			if err != nil {
				return err
			}
			filter.Kind = kind
		}
		if reviewsStatus != "" {
			status, err := model.ParseReviewStatus(reviewsStatus)
			if err != nil {
				return err
			}
			filter.Status = status
		}

		reviews, err := st.ListReviews(cmd.Context(), filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tSUBJECT\tSTATUS\tCONFIDENCE\tREASONS\tUPDATED")
		for _, r := range reviews {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\t%s\n",
				r.ID, r.Kind, r.SubjectID, r.Status, r.Output.Confidence,
				len(r.Output.Reasons), r.UpdatedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

func init() {
	reviewsListCmd.Flags().StringVar(&reviewsType, "type", "", "filter by kind (payment, inspection)")
	reviewsListCmd.Flags().StringVar(&reviewsStatus, "status", "", "filter by status (pass, needs_review, fail)")
	reviewsListCmd.Flags().StringVar(&reviewsLoanID, "loan-id", "", "filter by loan")
	reviewsListCmd.Flags().StringVar(&reviewsProjectID, "project-id", "", "filter by project")
	reviewsListCmd.Flags().IntVar(&reviewsLimit, "limit", 50, "max rows")
	reviewsCmd.AddCommand(reviewsListCmd)
	rootCmd.AddCommand(reviewsCmd)
}
