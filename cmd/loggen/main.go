package main

import (
	"flag"
	"log"
	"time"

	"mabletask/telemetry/generator"
)

func main() {
	var (
		count     = flag.Int("count", 100000, "total number of events across the whole date range")
		outputDir = flag.String("output-dir", "logs", "directory for the generated log files")
		startStr  = flag.String("start-date", "", "first day of the range, YYYY-MM-DD (default: 6 days ago)")
		endStr    = flag.String("end-date", "", "last day of the range, YYYY-MM-DD (default: today)")
		seed      = flag.Int64("seed", 42, "random seed; the same seed reproduces the same corpus")
	)
	flag.Parse()

	end := today()
	if *endStr != "" {
		var err error
		end, err = parseDay(*endStr)
		if err != nil {
			log.Fatalf("invalid -end-date: %v", err)
		}
	}

	start := end.AddDate(0, 0, -6)
	if *startStr != "" {
		var err error
		start, err = parseDay(*startStr)
		if err != nil {
			log.Fatalf("invalid -start-date: %v", err)
		}
	}

	g, err := generator.New(generator.Config{
		Count:     *count,
		OutputDir: *outputDir,
		StartDate: start,
		EndDate:   end,
	}, *seed)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	log.Printf("generating %d events for %s..%s into %s (seed %d)",
		*count, start.Format("2006-01-02"), end.Format("2006-01-02"), *outputDir, *seed)

	if err := g.Run(); err != nil {
		log.Fatalf("generation failed: %v", err)
	}

	log.Println("done")
}

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
}
