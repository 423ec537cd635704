package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/staffdesk/hradmin/internal/bootstrap"
	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/infrastructure/config"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
	"github.com/staffdesk/hradmin/internal/pipeline"
	"github.com/staffdesk/hradmin/internal/repository/postgres"
	"github.com/staffdesk/hradmin/internal/service"
)

type runOptions struct {
	file      string
	directory string
	fromDB    bool
	medium    string
	date      string
	strict    bool
	payout    config.PayoutConfig
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dispatch every row of a payout file and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runFile(ctx, opts, cmd.OutOrStdout(), level)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "payout CSV file")
	f.StringVarP(&opts.directory, "directory", "d", "", "employee CSV (id,name,email,phone)")
	f.BoolVar(&opts.fromDB, "from-db", false, "load the employee directory from the database configured for the api")
	f.StringVarP(&opts.medium, "medium", "m", string(payout.MediumMobileMoney), "mobile money or orange money")
	f.StringVar(&opts.date, "date", "", "default payout date, YYYY-MM-DD (default today)")
	f.BoolVar(&opts.strict, "strict", false, "reject rows whose amount is not a positive number")
	f.StringVar(&opts.payout.Provider, "provider", "mock", "payout provider: mock or http")
	f.StringVar(&opts.payout.BaseURL, "base-url", "", "gateway base URL for the http provider")
	f.StringVar(&opts.payout.APIKey, "api-key", os.Getenv("HRADMIN_PAYOUT_API_KEY"), "gateway API key")
	f.DurationVar(&opts.payout.RequestTimeout, "timeout", 0, "gateway request timeout")
	_ = cmd.MarkFlagRequired("file")
	cmd.MarkFlagsMutuallyExclusive("directory", "from-db")
	cmd.MarkFlagsOneRequired("directory", "from-db")
	return cmd
}

func runFile(ctx context.Context, opts runOptions, out io.Writer, logLevel string) error {
	logger := observability.ConsoleLogger(logLevel, os.Stderr)

	csv, err := os.ReadFile(opts.file)
	if err != nil {
		return err
	}
	dir, err := loadDirectory(ctx, opts)
	if err != nil {
		return err
	}

	gateway, err := bootstrap.Gateway(&opts.payout, nil, logger)
	if err != nil {
		return err
	}
	svc := service.NewPayoutService(nil, nil, nil, nil, gateway, logger, service.WithStrictAmounts(opts.strict))

	summary, err := svc.RunFile(ctx, service.RunFileRequest{
		FileName:  filepath.Base(opts.file),
		CSV:       string(csv),
		Medium:    opts.medium,
		Date:      opts.date,
		Directory: dir,
	}, rowPrinter(out))
	fmt.Fprintf(out, "%s (%s)\n", summary, summary.Status)
	return err
}

func loadDirectory(ctx context.Context, opts runOptions) (employee.Directory, error) {
	if !opts.fromDB {
		text, err := os.ReadFile(opts.directory)
		if err != nil {
			return nil, err
		}
		return parseDirectory(string(text))
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.ConsoleLogger("warn", os.Stderr)
	pool, err := postgres.NewPool(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	employees := service.NewEmployeeService(postgres.NewEmployeeRepository(pool), postgres.NewTxManager(pool), logger)
	return employees.Snapshot(ctx)
}

// rowPrinter writes one line per finished row.
func rowPrinter(out io.Writer) pipeline.Observer {
	return pipeline.ObserverFunc(func(_ context.Context, u pipeline.Update) {
		r := u.Row
		status := string(r.Outcome)
		if r.Reason != payout.ReasonNone {
			status += " (" + string(r.Reason) + ")"
		}
		fmt.Fprintf(out, "[%d/%d] line %d %s %s: %s\n",
			u.Progress.Done, u.Progress.Total, r.Line, r.EmployeeID, r.Amount, status)
	})
}
