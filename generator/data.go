package generator

// Fixture data for the synthetic corpus. Values mirror the traffic shape of
// the storefront: a multilingual catalog browsed mostly from Korean consumer
// networks.

var ipBlocks = []string{
	"211.234", // SKT
	"1.224",   // KT
	"39.7",    // LG U+
	"121.190", // local ISPs
	"125.188", // home networks
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 17_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; SM-G998B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Mobile Safari/537.36",
	"Unknown",
}

var sitePaths = []string{
	"/",
	"/products",
	"/products?category=1",
	"/products?category=2",
	"/products?category=3",
	"/products?category=4",
	"/products?category=5",
	"/search?q=smartphone",
	"/search?q=laptop",
	"/search?q=headphones",
	"/search?q=camera",
	"/cart",
	"/checkout",
	"/login",
	"/register",
	"/profile",
	"/orders",
}

var searchQueries = []string{
	"스마트폰", "노트북", "헤드폰", "카메라", "TV", "태블릿", "게임기", "스피커",
	"키보드", "마우스", "모니터", "프린터", "이어폰", "충전기", "케이블", "스마트워치",
	"블루투스", "무선", "삼성", "애플", "LG", "소니", "게이밍", "방수", "초고속", "초경량",
}

var endpointByPath = map[string]string{
	"/":         "main.index",
	"/products": "products.list",
	"/cart":     "cart.view",
	"/checkout": "orders.checkout",
	"/login":    "auth.login",
	"/register": "auth.register",
	"/profile":  "users.profile",
	"/orders":   "orders.list",
	"/search":   "main.search",
}

type weightedLevel struct {
	level  string
	weight float64
}

var levelWeights = []weightedLevel{
	{"INFO", 0.7},
	{"WARNING", 0.15},
	{"ERROR", 0.1},
	{"DEBUG", 0.05},
}

var systemMessages = map[string][]string{
	"INFO": {
		"request processed",
		"request finished: GET /products - 200",
		"database connection established",
		"cache refresh complete",
		"session created",
		"static assets loaded",
	},
	"WARNING": {
		"database response delayed",
		"cache hit rate dropping",
		"session count approaching threshold",
		"API response time degraded",
		"low disk space warning",
		"memory usage rising",
	},
	"ERROR": {
		"database connection failed",
		"unexpected error while handling request",
		"upstream API request failed",
		"file upload processing error",
		"payment process failed",
		"template rendering error",
	},
	"DEBUG": {
		"executing query: SELECT * FROM products LIMIT 10",
		"cache key generated: product_1234",
		"session data updated",
		"form validation started",
		"middleware chain running",
		"environment variables loaded",
	},
}

var systemModules = map[string][]string{
	"INFO":    {"server", "routes", "models", "views", "utils"},
	"WARNING": {"database", "cache", "session", "api", "system"},
	"ERROR":   {"database", "api", "uploads", "payment", "templates"},
	"DEBUG":   {"database", "cache", "session", "forms", "middleware", "config"},
}

type weightedEvent struct {
	eventType string
	weight    float64
}

var eventWeights = []weightedEvent{
	{"page_view", 0.30},
	{"view", 0.25},
	{"search", 0.15},
	{"login_attempt", 0.05},
	{"login_success", 0.05},
	{"login_failed", 0.02},
	{"cart_add", 0.08},
	{"server_dwell_time", 0.10},
}

var loginFailureReasons = []string{
	"invalid_credentials",
	"account_locked",
	"inactive_account",
}
