package cli

import (
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"gridcrop/internal/imageio"
	"gridcrop/internal/logging"
	"gridcrop/internal/session"
	"gridcrop/internal/tui"
)

func buildEditCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit IMAGE",
		Short: "Adjust the grid interactively in the terminal",
		Long: `Open IMAGE in a full-screen terminal editor. Drag divider lines with the
mouse, change the grid with the arrow keys, then press c to write a zip of
all cells next to the image.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			// the terminal belongs to the editor; only a log file gets output
			if err := setupLogging(cfg, io.Discard); err != nil {
				return err
			}
			defer logging.Close()

			path := args[0]
			src, err := imageio.DecodeFile(path, cfg.Limits())
			if err != nil {
				return err
			}
			sess := session.New(session.Options{
				Dimensions:   cfg.Dimensions(),
				DisplayLimit: cfg.DisplayLimit(),
				Color:        cfg.GridColor,
				Policy:       cfg.Policy(),
			})
			sess.Upload(filepath.Base(path), src.Image)

			p := tea.NewProgram(tui.New(sess, path), tea.WithAltScreen(), tea.WithMouseCellMotion())
			_, err = p.Run()
			return err
		},
	}
}
