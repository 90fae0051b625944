package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"pnlengine/internal/cli"
	"pnlengine/internal/engine"
	"pnlengine/internal/forecast"
	"pnlengine/internal/ingest"
	"pnlengine/internal/log"
	"pnlengine/internal/report"
)

func main() {
	filePath := flag.String("file", "", "exported ledger CSV to process")
	rulesPath := flag.String("rules", "", "optional mapping rules JSON (built-in rules when empty)")
	forecastMonths := flag.Int("forecast", 0, "months to forecast (0 disables)")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: pnlcli -file export.csv [-rules rules.json] [-forecast 3]")
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	data, err := os.ReadFile(*filePath)
	if err != nil {
		logger.Error("Failed to read input file", log.FieldError, err, "path", *filePath)
		os.Exit(1)
	}

	matcher := cli.InitMatcher(logger, *rulesPath)

	table, err := ingest.Process(data, logger.Logger)
	if err != nil {
		logger.Error("Ingestion failed", log.FieldError, err)
		os.Exit(1)
	}

	res := engine.Compute(table.Transactions, matcher, nil, engine.Options{}, logger.Logger)
	stmt := report.Build(res)

	printStatement(stmt)

	fmt.Printf("\nrows: %d  degraded: %d  matched: %d  unclassified: %d (%.2f)\n",
		len(table.Transactions), table.Degraded, res.Matched,
		res.Unclassified.Count, res.Unclassified.Total)

	if *forecastMonths > 0 {
		printForecast(forecast.Project(res, *forecastMonths))
	}
}

func printStatement(stmt *report.Statement) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprint(w, "LINE\tLABEL")
	for _, m := range stmt.Headers {
		fmt.Fprintf(w, "\t%s", m)
	}
	fmt.Fprintln(w)

	for _, row := range stmt.Rows {
		fmt.Fprintf(w, "%d\t%s", row.LineNumber, row.Label)
		for _, m := range stmt.Headers {
			fmt.Fprintf(w, "\t%.2f", row.Values[m])
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

func printForecast(fc *forecast.Forecast) {
	if fc.InsufficientData {
		fmt.Printf("\nforecast: %s\n", fc.Warning)
		return
	}

	fmt.Println("\nFORECAST")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONTH\tREVENUE\tEBITDA\tPROJECTED")
	for _, p := range fc.Points {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%v\n", p.Month, p.Revenue, p.EBITDA, p.IsForecast)
	}
	w.Flush()
}
