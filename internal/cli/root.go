// Package cli holds the cobra commands of the chess-arena binary.
package cli

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/obslog"
)

func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "chess-arena",
		Short: "Run and measure chess algorithm matches",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`chess-arena plays batches of games between chess agents, collects
			move quality and win statistics, and reports them to the engine service.

			Configuration comes from the environment (ENGINE_BASE_URL, REDIS_URL,
			DATABASE_URL, STOCKFISH_PATH, ...) and an optional batch file.`),

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts := obslog.OptionsFromEnv()
			if cmd.Flag("debug").Changed {
				opts.Level = zap.DebugLevel
			}
			logger, err := obslog.New(opts)
			if err != nil {
				return err
			}
			obslog.Replace(logger)
			return nil
		},
	}

	root.PersistentFlags().Bool("debug", false, "Log at debug level")

	root.AddCommand(Run())
	root.AddCommand(HeadToHead())
	root.AddCommand(Position())
	root.AddCommand(Logs())
	return root
}
