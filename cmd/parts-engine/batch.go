// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"

	"github.com/pdiddy/parts-engine/internal/resolver"
	"github.com/pdiddy/parts-engine/pkg/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch <parts.csv>",
	Short: "Resolve part numbers for every row of a CSV file",
	Long: `Batch reads rows of "description,make,model,year" (header row optional,
make/model/year optional) and runs part resolution for each row. The report
is written as YAML: per-row outcomes plus a resolved/not-found/failed
summary. Rows with an empty description are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// batchRow is one CSV row's outcome in the report.
type batchRow struct {
	Description string  `yaml:"description"`
	Make        string  `yaml:"make,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	Year        string  `yaml:"year,omitempty"`
	PartNumber  string  `yaml:"part_number,omitempty"`
	Method      string  `yaml:"method,omitempty"`
	Confidence  float64 `yaml:"confidence,omitempty"`
	Validated   bool    `yaml:"validated"`
	Error       string  `yaml:"error,omitempty"`
}

// batchReport is the full run summary.
type batchReport struct {
	Resolved int        `yaml:"resolved"`
	NotFound int        `yaml:"not_found"`
	Skipped  int        `yaml:"skipped"`
	Rows     []batchRow `yaml:"rows"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()
	useDB, _ := cmd.Flags().GetBool("use-database")

	clients, err := newServiceClients(cfg, useDB, os.Stderr)
	if err != nil {
		return err
	}
	defer clients.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	report, err := resolveBatch(cmd.Context(), clients.resolver, f,
		resolver.Options{SkipDatabase: !useDB}, bypassCacheFlag(cmd), cfg, os.Stderr)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		outFile, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer outFile.Close()
		out = outFile
	}
	encoded, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = out.Write(encoded)
	return err
}

// partResolver lets tests drive resolveBatch without the full client graph.
type partResolver interface {
	Resolve(ctx context.Context, q types.Query, opts resolver.Options) resolver.Response
}

// resolveBatch drives part resolution for every CSV row and accumulates the
// report. Per-row failures are recorded, not fatal.
func resolveBatch(ctx context.Context, res partResolver, in io.Reader,
	opts resolver.Options, bypassCache bool, cfg types.Config, progress io.Writer) (*batchReport, error) {

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	report := &batchReport{}
	for lineNo := 1; ; lineNo++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading batch line %d: %w", lineNo, err)
		}

		q := rowQuery(record, bypassCache)
		if lineNo == 1 && strings.EqualFold(q.Description, "description") {
			continue
		}
		if q.Description == "" {
			report.Skipped++
			continue
		}

		fmt.Fprintf(progress, "batch: resolving %q (%s)\n", q.Description, q.Equipment())
		rowCtx, cancel := context.WithTimeout(ctx, commandTimeout(cfg))
		resp := res.Resolve(rowCtx, q, opts)
		cancel()

		row := batchRow{
			Description: q.Description,
			Make:        q.Make,
			Model:       q.Model,
			Year:        q.Year,
		}
		if resp.Best != nil {
			row.PartNumber = resp.Best.PartNumber
			row.Method = resp.Best.Method
			row.Confidence = resp.Best.Confidence
			row.Validated = resp.Best.Validation != nil && resp.Best.Validation.IsValid
			report.Resolved++
		} else {
			row.Error = "no part number found"
			report.NotFound++
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

func rowQuery(record []string, bypassCache bool) types.Query {
	field := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	return types.Query{
		Description: field(0),
		Make:        field(1),
		Model:       field(2),
		Year:        field(3),
		Domain:      types.DomainPart,
		BypassCache: bypassCache,
	}
}

func init() {
	batchCmd.Flags().Bool("use-database", true, "check and populate the local parts database")
	batchCmd.Flags().String("output", "", "write the YAML report to a file instead of stdout")

	rootCmd.AddCommand(batchCmd)
}
