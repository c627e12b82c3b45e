package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/adapter/arenapresenter"
	"github.com/park285/chess-arena/internal/arenabuilder"
	"github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/orchestrator"
)

const defaultBatchFile = "chess-arena/batch.yaml"

type batchFlags struct {
	file      string
	games     int
	white     string
	black     string
	removed   []string
	label     string
	skip      bool
	alternate bool
	noEval    bool
	verbose   bool
}

func Run() *cobra.Command {
	cmd, _ := newRun()
	return cmd
}

func newRun() (*cobra.Command, *batchFlags) {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play a batch of games between two agents",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`run plays a batch of games between the white and black agents.

			Agents and options are read from --batch, or from
			$XDG_CONFIG_HOME/chess-arena/batch.yaml when present; flags override
			the file. A human agent reads UCI moves (e2e4, e7e8q) from stdin.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			bc, err := f.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			return runBatch(cmd, cfg, bc, f.verbose)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.file, "batch", "f", "", "Batch file (YAML)")
	flags.IntVarP(&f.games, "games", "n", 0, "Number of games")
	flags.StringVar(&f.white, "white", "", "White agent, e.g. kind=local,mode=minimax,depth=3")
	flags.StringVar(&f.black, "black", "", "Black agent, e.g. kind=stockfish,time=100")
	flags.StringSliceVar(&f.removed, "remove", nil, "Squares to empty in the start position")
	flags.StringVar(&f.label, "label", "", "Batch label")
	flags.BoolVar(&f.skip, "skip", false, "Skip move and game delays")
	flags.BoolVar(&f.alternate, "alternate", false, "Swap colours every other game")
	flags.BoolVar(&f.noEval, "no-eval", false, "Do not ask providers to classify moves")
	flags.BoolVarP(&f.verbose, "verbose", "V", false, "Print every move")
	return cmd, f
}

// resolve merges the batch file with flags; flags win.
func (f batchFlags) resolve(cmd *cobra.Command, cfg *config.AppConfig) (orchestrator.BatchConfig, error) {
	bf := &config.BatchFile{Games: 1}
	if f.file == "" {
		if p, err := xdg.SearchConfigFile(defaultBatchFile); err == nil {
			f.file = p
		}
	}
	if f.file != "" {
		loaded, err := config.LoadBatchFile(f.file)
		if err != nil {
			return orchestrator.BatchConfig{}, err
		}
		bf = loaded
	}

	changed := func(name string) bool { return cmd.Flags().Changed(name) }
	if changed("games") {
		bf.Games = f.games
	}
	if changed("white") {
		spec, err := parseAgent(f.white)
		if err != nil {
			return orchestrator.BatchConfig{}, &domain.ConfigurationError{Field: "white", Err: err}
		}
		bf.White = spec
	}
	if changed("black") {
		spec, err := parseAgent(f.black)
		if err != nil {
			return orchestrator.BatchConfig{}, &domain.ConfigurationError{Field: "black", Err: err}
		}
		bf.Black = spec
	}
	if changed("remove") {
		bf.Removed = f.removed
	}
	if changed("label") {
		bf.Label = f.label
	}
	if changed("skip") {
		bf.Skip = f.skip
	}
	if changed("alternate") {
		bf.AlternateColors = f.alternate
	}
	if changed("no-eval") {
		v := !f.noEval
		bf.Evaluate = &v
	}

	seats, err := bf.Assignment(cfg.ReferenceTimeLimit)
	if err != nil {
		return orchestrator.BatchConfig{}, err
	}
	fen, err := startFEN(bf.Removed)
	if err != nil {
		return orchestrator.BatchConfig{}, &domain.ConfigurationError{Field: "removed", Err: err}
	}
	return orchestrator.BatchConfig{
		Games:           bf.Games,
		Assignment:      seats,
		StartFEN:        fen,
		Evaluate:        bf.EvaluateMoves(),
		AlternateColors: bf.AlternateColors,
		Skip:            bf.Skip,
		Label:           bf.Label,
	}, nil
}

func runBatch(cmd *cobra.Command, cfg *config.AppConfig, bc orchestrator.BatchConfig, verbose bool) error {
	logger := obslog.L()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	presenter := arenapresenter.NewPresenter(cmd.OutOrStdout(), arenapresenter.NewFormatter(verbose))
	deps, err := arenabuilder.New(ctx, cfg, logger, presenter)
	if err != nil {
		return err
	}
	defer deps.Close()
	ctrl := deps.Controller

	if deps.Store != nil {
		storeCtx, stopStore := context.WithCancel(context.Background())
		storeDone := make(chan struct{})
		go func() {
			defer close(storeDone)
			deps.Store.Run(storeCtx)
		}()
		// Runs before deps.Close so queued events reach Redis.
		defer func() {
			stopStore()
			<-storeDone
		}()
	}
	if cfg.LiveAddr != "" {
		srv := liveServer(cfg.LiveAddr, deps)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("live_server_error", zap.Error(err))
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if err := ctrl.Start(bc); err != nil {
		return err
	}
	if bc.Assignment.White.Kind == domain.KindHuman || bc.Assignment.Black.Kind == domain.KindHuman {
		go readHumanMoves(ctx, cmd.InOrStdin(), ctrl, presenter)
	}

	go func() {
		<-ctx.Done()
		if !ctrl.State().Terminal() {
			ctrl.Reset(false)
		}
	}()

	if err := ctrl.Wait(context.Background()); err != nil {
		return err
	}
	presenter.Print(presenter.Formatter().Report(deps.Stats.Report()))
	if deps.Publisher != nil {
		for _, name := range deps.Publisher.Files() {
			presenter.Print("log: " + name)
		}
	}
	return ctrl.Err()
}

// readHumanMoves feeds UCI moves typed on in, one per line.
func readHumanMoves(ctx context.Context, in io.Reader, ctrl *orchestrator.Controller, p *arenapresenter.Presenter) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if len(line) < 4 {
			continue
		}
		promo := ""
		if len(line) > 4 {
			promo = line[4:5]
		}
		if err := ctrl.SubmitHumanMove(line[:2], line[2:4], promo); err != nil {
			p.Print("✖ " + err.Error())
		}
	}
}

func liveServer(addr string, deps *arenabuilder.Deps) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", deps.Hub)
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Controller.Snapshot()
		if id := r.URL.Query().Get("batch"); id != "" && deps.Store != nil {
			stored, err := deps.Store.Snapshot(r.Context(), id)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			if stored == nil {
				http.NotFound(w, r)
				return
			}
			snap = *stored
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
