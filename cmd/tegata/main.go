package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"nyiyui.ca/hato/tegata/config"
	"nyiyui.ca/hato/tegata/export"
	"nyiyui.ca/hato/tegata/kujo"
	"nyiyui.ca/hato/tegata/screen"
	"nyiyui.ca/hato/tegata/store"
	"nyiyui.ca/hato/tegata/trace"
	"nyiyui.ca/hato/tegata/ui"
)

var (
	configPath string
	logLevel   string
	logFile    string
	tui        bool
	outPath    string

	conf config.Config
)

var rootCmd = &cobra.Command{
	Use:           "tegata",
	Short:         "Calibrate a keyboard layout from finger touches",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		if logFile != "" {
			cfg.OutputPaths = []string{logFile}
			cfg.ErrorOutputPaths = []string{logFile}
		}
		dev, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		zap.ReplaceGlobals(dev)

		conf, err = config.Load(configPath)
		if err != nil {
			return err
		}
		zap.S().Debugw("config", "path", configPath, "config", conf)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.S().Sync()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser front end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return serve(ctx)
	},
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the native full-screen front end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runScreen(ctx)
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <trace>",
	Short: "Replay a recorded trace and print the resulting export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replay(args[0], outPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tegata.yml", "config file (missing means defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log to this file instead of stderr")
	serveCmd.Flags().BoolVar(&tui, "tui", false, "also show the state in the terminal")
	replayCmd.Flags().StringVarP(&outPath, "output", "o", "", "write the export here instead of stdout")
	rootCmd.AddCommand(serveCmd, screenCmd, replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tegata: %s\n", err)
		os.Exit(1)
	}
}

// newStore makes the store, recording to the trace path if one is configured.
func newStore() (*store.Store, func(), error) {
	stConf := conf.Store()
	if conf.TracePath == "" {
		return store.New(stConf), func() {}, nil
	}
	f, err := os.Create(conf.TracePath)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace: %w", err)
	}
	stConf.Recorder = trace.NewRecorder(f)
	zap.S().Infow("recording trace", "path", conf.TracePath)
	return store.New(stConf), func() { f.Close() }, nil
}

func quiet(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ui.ErrQuit)
}

func serve(ctx context.Context) error {
	st, closeTrace, err := newStore()
	if err != nil {
		return err
	}
	defer closeTrace()
	s, err := kujo.NewServer(st, conf)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: conf.Listen, Handler: s.Handler()}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return st.Run(ctx) })
	eg.Go(func() error { return s.Forward(ctx) })
	eg.Go(func() error {
		zap.S().Infof("listening on %s", conf.Listen)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if tui {
		eg.Go(func() error { return ui.Main(ctx, st, conf.Export()) })
	}
	if err := eg.Wait(); !quiet(err) {
		return err
	}
	return nil
}

// runScreen keeps ebiten on the calling goroutine, which must be the main one.
func runScreen(ctx context.Context) error {
	st, closeTrace, err := newStore()
	if err != nil {
		return err
	}
	defer closeTrace()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return st.Run(ctx) })
	screenErr := screen.Run(ctx, st, conf)
	cancel()
	if err := eg.Wait(); !quiet(err) {
		return err
	}
	return screenErr
}

func replay(path, out string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	recs, err := trace.Read(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s := trace.Replay(recs, conf.Session())
	zap.S().Infow("replayed", "records", len(recs), "phase", s.Phase, "homes", len(s.Homes))
	data, err := export.Marshal(s, conf.Export())
	if err != nil {
		return err
	}
	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0o644)
}
