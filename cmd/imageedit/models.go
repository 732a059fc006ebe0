package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mhpenta/imageedit"
	"github.com/mhpenta/imageedit/provider/gemini"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the available models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}

		// Listing needs no API client; model infos are static.
		manager := imageedit.NewManager(&gemini.GeminiEditor{},
			imageedit.WithLogger(newLogger(cfg)),
			imageedit.WithDefaultModel(imageedit.Model(cfg.Model)),
		)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tAPI NAME\tSIZES\tREQ/MIN\tDEFAULT")
		for _, model := range manager.ListModels() {
			info, ok := manager.GetModelInfo(model)
			if !ok {
				continue
			}
			sizes := make([]string, 0, len(info.ImageConstraints.SupportedSizes))
			for _, s := range info.ImageConstraints.SupportedSizes {
				sizes = append(sizes, s.String())
			}
			def := ""
			if model == manager.DefaultModel() {
				def = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				model, info.APIModelName, strings.Join(sizes, ","), info.RateLimits.RequestsPerMinute, def)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
