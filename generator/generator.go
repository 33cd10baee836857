package generator

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mabletask/telemetry/models"
	"mabletask/telemetry/telemetry"
)

// Config parameterizes a simulation run. Validation failures are fatal; the
// generator is offline tooling with no partial-day recovery.
type Config struct {
	Count     int
	OutputDir string
	StartDate time.Time
	EndDate   time.Time
}

// Generator produces a multi-day corpus of system and user-activity log
// lines without a live server. Activity lines go through the same encoder as
// the live pipeline, so the output is structurally indistinguishable from
// the real file sink. Single-threaded, fully sequential.
type Generator struct {
	cfg      Config
	rng      *rand.Rand
	sessions []*simSession
	products []simProduct
}

type simSession struct {
	id        string
	userID    *int
	ip        string
	userAgent string
	lastPath  string
}

type simProduct struct {
	id       int
	category int
	price    float64
}

// New validates the configuration and seeds the synthetic catalog. The same
// seed reproduces the same corpus.
func New(cfg Config, seed int64) (*Generator, error) {
	if cfg.Count <= 0 {
		return nil, fmt.Errorf("event count must be positive, got %d", cfg.Count)
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.EndDate.Before(cfg.StartDate) {
		return nil, fmt.Errorf("end date %s precedes start date %s",
			cfg.EndDate.Format("2006-01-02"), cfg.StartDate.Format("2006-01-02"))
	}

	g := &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
	for i := 1; i <= 100; i++ {
		g.products = append(g.products, simProduct{
			id:       i,
			category: 1 + g.rng.Intn(5),
			price:    round2(10 + g.rng.Float64()*990),
		})
	}
	return g, nil
}

// Run generates every day in the configured range and writes each day's two
// files in one shot. Any error aborts the run.
func (g *Generator) Run() error {
	days := 0
	for d := g.cfg.StartDate; !d.After(g.cfg.EndDate); d = d.AddDate(0, 0, 1) {
		days++
	}
	perDay := g.cfg.Count / days

	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", g.cfg.OutputDir, err)
	}

	for d := g.cfg.StartDate; !d.After(g.cfg.EndDate); d = d.AddDate(0, 0, 1) {
		corpus, err := g.generateDay(d, perDay)
		if err != nil {
			return err
		}
		if err := corpus.write(g.cfg.OutputDir); err != nil {
			return err
		}
	}
	return nil
}

type dayCorpus struct {
	date           time.Time
	systemLines    []string
	activityLines  []string
	pageViews      int
	searches       int
	loginSuccesses int
}

// write stores the day's accumulated lines under the exact names the
// rotating log writer would have produced.
func (c *dayCorpus) write(dir string) error {
	dateStr := c.date.Format("2006-01-02")

	sysPath := filepath.Join(dir, fmt.Sprintf("app-%s.log", dateStr))
	if err := os.WriteFile(sysPath, []byte(strings.Join(c.systemLines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sysPath, err)
	}

	actPath := filepath.Join(dir, fmt.Sprintf("user_activity-%s.log", dateStr))
	if err := os.WriteFile(actPath, []byte(strings.Join(c.activityLines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", actPath, err)
	}
	return nil
}

// generateDay models one day: session churn, then the day's event budget
// split 30/70 between system and activity lines, bracketed by a service
// start line and a summary whose counts match the emitted corpus exactly.
func (g *Generator) generateDay(date time.Time, events int) (*dayCorpus, error) {
	g.churnSessions()

	corpus := &dayCorpus{date: date}

	startLine, err := encodeSystemLine(date, "INFO", "web service started - daily logging configured", "dailylog")
	if err != nil {
		return nil, err
	}
	corpus.systemLines = append(corpus.systemLines, startLine)

	for i := 0; i < events; i++ {
		ts := date.
			Add(time.Duration(g.rng.Intn(86400)) * time.Second).
			Add(time.Duration(g.rng.Intn(1000000)) * time.Microsecond)

		if g.rng.Float64() < 0.3 {
			line, err := g.systemLine(ts)
			if err != nil {
				return nil, err
			}
			corpus.systemLines = append(corpus.systemLines, line)
			continue
		}

		line, eventType, err := g.activityLine(ts)
		if err != nil {
			return nil, err
		}
		corpus.activityLines = append(corpus.activityLines, line)

		switch eventType {
		case models.EventPageView:
			corpus.pageViews++
		case models.EventSearch:
			corpus.searches++
		case models.EventLoginSuccess:
			corpus.loginSuccesses++
		}
	}

	summaryTime := date.Add(24*time.Hour - time.Microsecond)
	summary := fmt.Sprintf("daily activity summary: page_view=%d search=%d login_success=%d",
		corpus.pageViews, corpus.searches, corpus.loginSuccesses)
	summaryLine, err := encodeSystemLine(summaryTime, "INFO", summary, "stats")
	if err != nil {
		return nil, err
	}
	corpus.systemLines = append(corpus.systemLines, summaryLine)

	return corpus, nil
}

// churnSessions models day-boundary session expiry: a random 75% of the
// carried-over pool is evicted and 100 fresh sessions are injected.
func (g *Generator) churnSessions() {
	g.rng.Shuffle(len(g.sessions), func(i, j int) {
		g.sessions[i], g.sessions[j] = g.sessions[j], g.sessions[i]
	})
	evict := int(float64(len(g.sessions)) * 0.75)
	g.sessions = g.sessions[evict:]

	for i := 0; i < 100; i++ {
		g.sessions = append(g.sessions, g.newSession())
	}
}

func (g *Generator) newSession() *simSession {
	var userID *int
	if n := g.rng.Intn(101); n > 0 {
		uid := n
		userID = &uid
	}
	return &simSession{
		id:        g.sessionID(),
		userID:    userID,
		ip:        g.randomIP(),
		userAgent: userAgents[g.rng.Intn(len(userAgents))],
	}
}

// sessionID draws from the seeded source so a fixed seed reproduces the
// whole corpus, IDs included.
func (g *Generator) sessionID() string {
	b := make([]byte, 16)
	g.rng.Read(b)
	return hex.EncodeToString(b)
}

func (g *Generator) randomIP() string {
	block := ipBlocks[g.rng.Intn(len(ipBlocks))]
	return fmt.Sprintf("%s.%d.%d", block, g.rng.Intn(256), g.rng.Intn(256))
}

func (g *Generator) systemLine(ts time.Time) (string, error) {
	level := g.pickLevel()
	messages := systemMessages[level]
	modules := systemModules[level]
	return encodeSystemLine(ts, level,
		messages[g.rng.Intn(len(messages))],
		modules[g.rng.Intn(len(modules))])
}

func (g *Generator) pickLevel() string {
	r := g.rng.Float64()
	for _, w := range levelWeights {
		if r < w.weight {
			return w.level
		}
		r -= w.weight
	}
	return levelWeights[len(levelWeights)-1].level
}

func (g *Generator) pickEventType() string {
	r := g.rng.Float64()
	for _, w := range eventWeights {
		if r < w.weight {
			return w.eventType
		}
		r -= w.weight
	}
	return eventWeights[len(eventWeights)-1].eventType
}

// activityLine synthesizes one user-activity event. 95% of events come from
// the active pool and stay path-coherent within the session; 5% carry the
// no_session sentinel.
func (g *Generator) activityLine(ts time.Time) (line string, eventType string, err error) {
	var sess *simSession
	sessionID := models.NoSession
	var userID *int
	ip := g.randomIP()
	ua := userAgents[g.rng.Intn(len(userAgents))]

	if g.rng.Float64() >= 0.05 && len(g.sessions) > 0 {
		sess = g.sessions[g.rng.Intn(len(g.sessions))]
		sessionID = sess.id
		userID = sess.userID
		ip = sess.ip
		ua = sess.userAgent
	}

	eventType = g.pickEventType()
	ev := models.ActivityEvent{
		Timestamp: ts,
		EventType: eventType,
		SessionID: sessionID,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: ua,
	}

	switch eventType {
	case models.EventPageView:
		path := sitePaths[g.rng.Intn(len(sitePaths))]
		req := models.RequestInfo{
			Endpoint:       endpointFor(path),
			Method:         "GET",
			Path:           path,
			Args:           queryOf(path),
			ResponseStatus: g.pickStatus(200, 302, 304),
			ProcessTime:    round6(0.001 + g.rng.Float64()*0.499),
		}
		if cat, ok := req.Args["category"]; ok {
			if id, err := strconv.Atoi(cat); err == nil {
				ev.EntityType = "category"
				ev.EntityID = &id
			}
		}
		ev.Payload = models.PageViewPayload{RequestInfo: req}
		if sess != nil {
			sess.lastPath = path
		}

	case models.EventView:
		p := g.products[g.rng.Intn(len(g.products))]
		path := fmt.Sprintf("/products/%d", p.id)
		referrer := ""
		if sess != nil {
			referrer = sess.lastPath
		}
		ev.EntityType = "product"
		id := p.id
		ev.EntityID = &id
		ev.Payload = models.ViewPayload{RequestInfo: models.RequestInfo{
			Endpoint:       "products.detail",
			Method:         "GET",
			Path:           path,
			Referrer:       referrer,
			ResponseStatus: 200,
			ProcessTime:    round6(0.01 + g.rng.Float64()*0.19),
		}}
		if sess != nil {
			sess.lastPath = path
		}

	case models.EventSearch:
		query := searchQueries[g.rng.Intn(len(searchQueries))]
		path := "/search?q=" + query
		referrer := ""
		if sess != nil {
			referrer = sess.lastPath
		}
		ev.Payload = models.SearchPayload{
			RequestInfo: models.RequestInfo{
				Endpoint:       "main.search",
				Method:         "GET",
				Path:           path,
				Args:           map[string]string{"q": query},
				Referrer:       referrer,
				ResponseStatus: 200,
				ProcessTime:    round6(0.05 + g.rng.Float64()*0.45),
			},
			SearchQuery:  query,
			ResultsCount: g.rng.Intn(21),
		}
		if sess != nil {
			sess.lastPath = path
		}

	case models.EventLoginAttempt:
		username := fmt.Sprintf("user%d@example.com", 1+g.rng.Intn(100))
		ev.UserID = nil
		ev.Payload = models.LoginAttemptPayload{
			RequestInfo: models.RequestInfo{
				Endpoint:       "auth.login",
				Method:         "POST",
				Path:           "/auth/login",
				Form:           map[string]string{"email": username},
				ResponseStatus: 200,
			},
			UsernameAttempt: username,
		}

	case models.EventLoginFailed:
		username := fmt.Sprintf("user%d@example.com", 1+g.rng.Intn(100))
		ev.Payload = models.LoginFailedPayload{
			UsernameAttempt: username,
			Reason:          loginFailureReasons[g.rng.Intn(len(loginFailureReasons))],
		}

	case models.EventLoginSuccess:
		uid := 1 + g.rng.Intn(100)
		ev.UserID = &uid
		ev.Payload = models.LoginPayload{RequestInfo: models.RequestInfo{
			Endpoint:       "auth.login",
			Method:         "POST",
			Path:           "/auth/login",
			ResponseStatus: 200,
		}}
		// A successful login promotes the session's identity going forward.
		if sess != nil {
			sess.userID = &uid
			sess.lastPath = "/auth/login"
		}

	case models.EventCartAdd:
		p := g.products[g.rng.Intn(len(g.products))]
		quantity := 1 + g.rng.Intn(5)
		id := p.id
		ev.EntityType = "product"
		ev.EntityID = &id
		ev.Payload = models.CartPayload{RequestInfo: models.RequestInfo{
			Endpoint: "cart.add",
			Method:   "POST",
			Path:     "/cart/add",
			Form: map[string]string{
				"product_id": strconv.Itoa(p.id),
				"quantity":   strconv.Itoa(quantity),
			},
			Referrer:       fmt.Sprintf("/products/%d", p.id),
			ResponseStatus: 302,
			ProcessTime:    round6(0.01 + g.rng.Float64()*0.09),
		}}

	case models.EventServerDwell:
		currentPath := sitePaths[g.rng.Intn(len(sitePaths))]
		previousPath := "/"
		if sess != nil && sess.lastPath != "" {
			previousPath = sess.lastPath
		}
		productID := telemetry.ProductPathID(previousPath)
		if productID != nil {
			ev.EntityType = "product"
			ev.EntityID = productID
		}
		ev.Payload = models.DwellPayload{
			ProductID:        productID,
			PreviousPath:     previousPath,
			CurrentPath:      currentPath,
			DwellTimeSeconds: round6(1 + g.rng.Float64()*599),
		}
		if sess != nil {
			sess.lastPath = currentPath
		}
	}

	line, err = ev.Encode()
	return line, eventType, err
}

func (g *Generator) pickStatus(statuses ...int) int {
	return statuses[g.rng.Intn(len(statuses))]
}

func endpointFor(path string) string {
	base := strings.SplitN(path, "?", 2)[0]
	return endpointByPath[base]
}

func queryOf(path string) map[string]string {
	parts := strings.SplitN(path, "?", 2)
	if len(parts) < 2 {
		return nil
	}
	vals, err := url.ParseQuery(parts[1])
	if err != nil {
		return nil
	}
	return models.FlattenQuery(vals)
}

type systemRecord struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Module    string `json:"module"`
}

func encodeSystemLine(ts time.Time, level, message, module string) (string, error) {
	rec := systemRecord{
		Timestamp: ts.Format(models.TimestampLayout),
		Level:     level,
		Message:   message,
		Module:    module,
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("failed to encode system line: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
