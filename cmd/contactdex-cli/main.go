// Command contactdex-cli searches a JSON records file offline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/domain/record"
	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/domain/search/result"
	"github.com/kailas-cloud/contactdex/internal/index"
	logpkg "github.com/kailas-cloud/contactdex/internal/logger"
	"github.com/kailas-cloud/contactdex/internal/transport/dto"
	"github.com/kailas-cloud/contactdex/internal/usecase/recovery"
	searchuc "github.com/kailas-cloud/contactdex/internal/usecase/search"
	"github.com/kailas-cloud/contactdex/internal/version"
)

// errInvalidQuery makes validate exit non-zero.
var errInvalidQuery = errors.New("invalid query")

const loggerKey = "logger"

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	recordsFlag := &cli.StringFlag{
		Name:     "records",
		Aliases:  []string{"r"},
		Usage:    "Path to a JSON array of contact records",
		Required: true,
	}

	return &cli.App{
		Name:    "contactdex-cli",
		Usage:   "Search contact records from a JSON file",
		Version: version.String(),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:  "id-prefix",
				Usage: "Canonical record ID prefix used for corrections and examples",
				Value: "SG COM",
			},
			&cli.StringFlag{
				Name:  "status-resolver",
				Usage: "Validator for records without a status (none, phone_length)",
				Value: filter.ResolverNone,
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Run a search over the records file",
				ArgsUsage: "[query]",
				Action:    searchCommand,
				Flags: []cli.Flag{
					recordsFlag,
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Query text (or first argument)"},
					&cli.StringFlag{Name: "id", Usage: "Filter: ID contains"},
					&cli.StringFlag{Name: "phone", Usage: "Filter: phone digits contain"},
					&cli.StringFlag{Name: "company", Usage: "Filter: company name contains"},
					&cli.StringFlag{Name: "address", Usage: "Filter: address contains"},
					&cli.StringFlag{Name: "email", Usage: "Filter: email contains"},
					&cli.StringFlag{Name: "website", Usage: "Filter: website contains"},
					&cli.StringFlag{Name: "status", Usage: "Filter: valid or invalid"},
					&cli.StringFlag{Name: "from", Usage: "Filter: timestamp on or after (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "to", Usage: "Filter: timestamp on or before (YYYY-MM-DD)"},
					&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
					&cli.IntFlag{Name: "page-size", Usage: "Results per page", Value: request.DefaultPageSize},
					&cli.DurationFlag{Name: "timeout", Usage: "Search time budget", Value: request.DefaultTimeout},
					&cli.BoolFlag{Name: "progressive", Usage: "Stream ranked batches instead of one page"},
					&cli.IntFlag{Name: "batch-size", Usage: "Batch size for --progressive",
						Value: searchuc.DefaultProgressiveBatchSize},
					&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Suggest queries for a partial input",
				ArgsUsage: "<partial>",
				Action:    suggestCommand,
				Flags:     []cli.Flag{recordsFlag},
			},
			{
				Name:      "validate",
				Usage:     "Check whether a query is well-formed",
				ArgsUsage: "<query>",
				Action:    validateCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	logger, err := logpkg.NewLogger("cli", c.String("log-level"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[loggerKey] = logger
	return nil
}

func loggerFrom(c *cli.Context) *zap.Logger {
	if l, ok := c.App.Metadata[loggerKey].(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// newService loads the records file into a fresh engine.
func newService(c *cli.Context) (*searchuc.Service, func(), error) {
	logger := loggerFrom(c)
	records, err := loadRecords(c.String("records"))
	if err != nil {
		return nil, nil, err
	}

	resolver, err := filter.NewResolver(c.String("status-resolver"))
	if err != nil {
		return nil, nil, err
	}

	builder, err := index.NewBuilder(index.DefaultWorkers())
	if err != nil {
		return nil, nil, fmt.Errorf("create index builder: %w", err)
	}
	prefix := c.String("id-prefix")
	svc := searchuc.New(
		index.NewManager(builder, logger),
		filter.NewEngine(resolver, logger),
		recovery.NewManager(recovery.Config{IDPrefix: prefix}, logger),
		searchuc.Config{Limits: request.DefaultLimits(), IDPrefix: prefix},
		logger,
	)
	if err := svc.UpdateRecords(c.Context, records); err != nil {
		builder.Release()
		return nil, nil, err
	}
	return svc, builder.Release, nil
}

func loadRecords(path string) ([]record.Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer func() { _ = f.Close() }()
	return dto.DecodeRecords(f)
}

func criteriaFrom(c *cli.Context) filter.Criteria {
	crit := filter.Criteria{
		ID:          c.String("id"),
		Phone:       c.String("phone"),
		CompanyName: c.String("company"),
		Address:     c.String("address"),
		Email:       c.String("email"),
		Website:     c.String("website"),
		Status:      c.String("status"),
	}
	if from, to := c.String("from"), c.String("to"); from != "" || to != "" {
		crit.DateRange = &filter.DateRange{Start: from, End: to}
	}
	return crit
}

func queryFrom(c *cli.Context) string {
	if q := c.String("query"); q != "" {
		return q
	}
	return strings.Join(c.Args().Slice(), " ")
}

func searchCommand(c *cli.Context) error {
	svc, release, err := newService(c)
	if err != nil {
		return err
	}
	defer release()

	q := queryFrom(c)
	out := c.App.Writer
	if c.Bool("progressive") {
		return progressive(c.Context, out, svc, q, criteriaFrom(c), c.Int("batch-size"), c.Duration("timeout"))
	}

	res := svc.Search(c.Context, q, criteriaFrom(c), request.Options{
		Timeout:  c.Duration("timeout"),
		Page:     c.Int("page"),
		PageSize: c.Int("page-size"),
	})
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.SearchResultFromDomain(res))
	}
	return printResult(out, res)
}

func progressive(
	ctx context.Context, out io.Writer, svc *searchuc.Service, q string, crit filter.Criteria, size int, timeout time.Duration,
) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	sum := svc.SearchProgressive(ctx, q, crit, searchuc.ProgressiveOptions{BatchSize: size, Timeout: timeout},
		func(b searchuc.Batch) error {
			fmt.Fprintf(tw, "# batch %d\n", b.Index+1)
			for _, r := range b.Records {
				printRecord(tw, r)
			}
			return tw.Flush()
		})
	fmt.Fprintf(out, "%d of %d records in %d batches (%s)\n",
		sum.Delivered, sum.Total, sum.Batches, sum.ExecutionTime.Round(time.Microsecond))
	if sum.Error != nil {
		fmt.Fprintf(out, "note: %s\n", sum.Error.Message)
	}
	return nil
}

func printRecord(w io.Writer, r record.Record) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID(), r.Phone(), r.CompanyName(), r.Status())
}

func printResult(out io.Writer, res *result.SearchResult) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range res.Records {
		printRecord(tw, r)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	p := res.Pagination
	fmt.Fprintf(out, "%d results (%s, page %d/%d) in %s\n",
		res.Total, res.Kind, p.Page, max(p.TotalPages, 1), res.ExecutionTime.Round(time.Microsecond))
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	if res.Error != nil {
		fmt.Fprintf(out, "note: %s (%s)\n", res.Error.Message, res.Error.Strategy)
	}
	for _, s := range res.Suggestions {
		fmt.Fprintf(out, "try: %s\n", s)
	}
	return nil
}

func suggestCommand(c *cli.Context) error {
	svc, release, err := newService(c)
	if err != nil {
		return err
	}
	defer release()

	for _, s := range svc.GetSuggestions(c.Context, strings.Join(c.Args().Slice(), " ")) {
		fmt.Fprintln(c.App.Writer, s)
	}
	return nil
}

func validateCommand(c *cli.Context) error {
	q := strings.Join(c.Args().Slice(), " ")
	v := query.ValidatePattern(q)
	if !v.Valid {
		fmt.Fprintf(c.App.Writer, "invalid: %s\n", v.Message())
		return fmt.Errorf("%w: %q", errInvalidQuery, q)
	}
	fmt.Fprintf(c.App.Writer, "valid %s query\n", query.Parse(q).Kind())
	return nil
}
