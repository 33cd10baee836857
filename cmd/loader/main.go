package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"mabletask/telemetry/database"
	"mabletask/telemetry/models"
	"mabletask/telemetry/store"
)

// loader ingests user_activity-{date}.log files into the ClickHouse mirror
// table backing the stats endpoints. Malformed lines are counted and skipped;
// the file stream may contain partial writes from a crashed process.
func main() {
	var (
		dir       = flag.String("dir", "logs", "directory containing user_activity-*.log files")
		batchSize = flag.Int("batch-size", 5000, "rows per insert batch")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	analytics := store.NewAnalyticsStore(chClient)

	ctx := context.Background()
	if err := analytics.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure analytics schema: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "user_activity-*.log"))
	if err != nil {
		log.Fatalf("Failed to list log files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No user_activity-*.log files found in %s", *dir)
	}

	total := 0
	for _, file := range files {
		n, err := loadFile(ctx, analytics, file, *batchSize)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", file, err)
		}
		log.Printf("loaded %d events from %s", n, file)
		total += n
	}
	log.Printf("loaded %d events total from %d files", total, len(files))
}

func loadFile(ctx context.Context, analytics *store.AnalyticsStore, path string, batchSize int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var batch []models.ActivityEventRow
	count := 0
	skipped := 0

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		row, ok := projectLine(line)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := analytics.InsertEvents(ctx, batch); err != nil {
				return count, err
			}
			count += len(batch)
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}

	if len(batch) > 0 {
		if err := analytics.InsertEvents(ctx, batch); err != nil {
			return count, err
		}
		count += len(batch)
	}

	if skipped > 0 {
		log.Printf("skipped %d malformed lines in %s", skipped, path)
	}
	return count, nil
}

// projectLine extracts the mirror table's columns from one activity log
// line. Dwell events carry their location as current_path rather than path.
func projectLine(line string) (models.ActivityEventRow, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return models.ActivityEventRow{}, false
	}

	ts, err := time.ParseInLocation(models.TimestampLayout, str(obj["timestamp"]), time.Local)
	if err != nil {
		return models.ActivityEventRow{}, false
	}

	row := models.ActivityEventRow{
		Timestamp: ts,
		EventType: str(obj["event_type"]),
		SessionID: str(obj["session_id"]),
		IPAddress: str(obj["ip_address"]),
		UserAgent: str(obj["user_agent"]),
		Raw:       line,
	}
	if row.EventType == "" {
		return models.ActivityEventRow{}, false
	}

	if v, ok := obj["user_id"].(float64); ok {
		id := int64(v)
		row.UserID = &id
	}

	row.Path = str(obj["path"])
	if row.Path == "" {
		row.Path = str(obj["current_path"])
	}

	if v, ok := obj["dwell_time_seconds"].(float64); ok {
		row.DwellTimeSeconds = v
	}

	return row, true
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
