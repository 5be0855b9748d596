package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/FrankSpooren/HolidaiButler/internal/translate"
)

var (
	translateRunID  string
	translateResume bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Fan applied descriptions out to the configured languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if translateRunID == "" {
			return eris.New("--run-id is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client, err := initTextClient()
		if err != nil {
			return err
		}

		tr := translate.New(cfg.Translate, st, client)
		out, err := tr.Run(ctx, translateRunID, translateResume)
		if err != nil {
			return eris.Wrap(err, "translate")
		}

		fmt.Printf("translated %d, skipped %d, errors %d\n",
			out.Translated, out.Skipped, len(out.Errors))
		for _, e := range out.Errors {
			fmt.Printf("error: %s\n", e)
		}
		return nil
	},
}

func init() {
	translateCmd.Flags().StringVar(&translateRunID, "run-id", "", "run whose applied rows to translate")
	translateCmd.Flags().BoolVar(&translateResume, "resume", false, "skip pairs the checkpoint marks done")
	rootCmd.AddCommand(translateCmd)
}
