package cli

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/park285/chess-arena/internal/adapter/arenapresenter"
	"github.com/park285/chess-arena/internal/arenabuilder"
	"github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/obslog"
)

func HeadToHead() *cobra.Command {
	var white, black string
	cmd := &cobra.Command{
		Use:   "h2h",
		Short: "Let the provider play one algorithm against another server-side",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			w, err := localAgent("white", white, cfg)
			if err != nil {
				return err
			}
			b, err := localAgent("black", black, cfg)
			if err != nil {
				return err
			}

			presenter := arenapresenter.NewPresenter(cmd.OutOrStdout(), nil)
			deps, err := arenabuilder.New(cmd.Context(), cfg, obslog.L(), presenter)
			if err != nil {
				return err
			}
			defer deps.Close()

			s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
			s.Suffix = " waiting for the provider to finish the game"
			s.Start()
			_, err = deps.Controller.RunHeadToHead(cmd.Context(), w, b)
			s.Stop()
			return err
		},
	}
	cmd.Flags().StringVar(&white, "white", "kind=local,mode=minimax,depth=2", "White algorithm")
	cmd.Flags().StringVar(&black, "black", "kind=local,mode=hybrid,depth=2,rollouts=30", "Black algorithm")
	return cmd
}

func localAgent(field, raw string, cfg *config.AppConfig) (domain.Agent, error) {
	spec, err := parseAgent(raw)
	if err != nil {
		return domain.Agent{}, &domain.ConfigurationError{Field: field, Err: err}
	}
	return spec.Agent(field, cfg.ReferenceTimeLimit)
}
