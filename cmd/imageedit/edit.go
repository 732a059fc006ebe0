package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mhpenta/imageedit"
	"github.com/mhpenta/imageedit/storage/local"
)

var editCmd = &cobra.Command{
	Use:   "edit IMAGE",
	Short: "Run one edit and save the result",
	Long:  `Reads IMAGE, applies the instruction and writes the edited image to the output directory.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}
		instruction, _ := cmd.Flags().GetString("instruction")
		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = cfg.ExportDir
		}

		logger := newLogger(cfg)
		ctx := cmd.Context()

		manager, err := newManager(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer manager.Close()

		session, _ := newSession(cfg, manager, logger)
		defer session.Close()

		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		err = session.AcquireImage(ctx, imageedit.RawFile{
			Name:        filepath.Base(path),
			ContentType: imageedit.MediaTypeFromPath(path),
			Reader:      f,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		session.SetInstruction(instruction)
		snap, started := session.Generate(ctx)
		if !started {
			return imageedit.ErrEmptyInstruction
		}

		switch snap.State {
		case imageedit.StateSuccess:
			res, err := session.Export(ctx, local.NewFileStorage(outDir))
			if err != nil {
				return err
			}
			if snap.ResultText != "" {
				fmt.Fprintln(cmd.OutOrStdout(), snap.ResultText)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.URL)
			return nil
		case imageedit.StateError:
			return errors.New(snap.Error)
		default:
			return fmt.Errorf("edit ended in unexpected state %s", snap.State)
		}
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringP("instruction", "i", "", "Edit instruction, e.g. \"Convert to black and white\"")
	editCmd.Flags().StringP("out", "o", "", "Directory to write the edited image to (default IMAGEEDIT_EXPORT_DIR)")
	_ = editCmd.MarkFlagRequired("instruction")
}
