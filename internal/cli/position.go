package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/park285/chess-arena/internal/position"
)

func Position() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position [square...]",
		Short: "Print the FEN of the standard set with the given squares emptied",
		Args:  cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			fen, err := startFEN(args)
			if err != nil {
				return err
			}
			if fen == "" {
				fen = position.StandardFEN
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), fen)
			return err
		},
	}
	return cmd
}

// startFEN returns "" when nothing is removed so batches use the default
// start position.
func startFEN(removed []string) (string, error) {
	if len(removed) == 0 {
		return "", nil
	}
	sel, err := position.FromRemovals(removed)
	if err != nil {
		return "", err
	}
	return position.Build(sel)
}
