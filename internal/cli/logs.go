package cli

import (
	"github.com/spf13/cobra"

	"github.com/park285/chess-arena/internal/adapter/arenapresenter"
	"github.com/park285/chess-arena/internal/arenabuilder"
	"github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/obslog"
)

func Logs() *cobra.Command {
	var batchID string
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List stored game logs",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			deps, err := arenabuilder.New(cmd.Context(), cfg, obslog.L())
			if err != nil {
				return err
			}
			defer deps.Close()

			logs, err := deps.Repo.RecentLogs(cmd.Context(), batchID, limit)
			if err != nil {
				return err
			}
			arenapresenter.NewPresenter(cmd.OutOrStdout(), nil).Print(arenapresenter.NewFormatter(false).Logs(logs))
			return nil
		},
	}
	cmd.Flags().StringVar(&batchID, "batch", "", "Only logs of this batch")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of logs")
	return cmd
}
