package connector

import (
	"net/url"
	"regexp"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// SanitizeDSN normalizes a DSN before it reaches the driver. URL style DSNs
// get their credentials percent-encoded so passwords holding @ or # parse,
// and MySQL DSNs get the tcp() address wrapper go-sql-driver requires.
func SanitizeDSN(driver, dsn string) string {
	switch driver {
	case "postgres", "mssql":
		return encodeURLUserinfo(dsn)
	case "mysql":
		return normalizeMySQLDSN(dsn)
	default:
		return dsn
	}
}

// user:pass@host:3306/db
var bareMySQLAddr = regexp.MustCompile(`^(.+)@([^(@/]+:\d+)(/.*)?$`)

func normalizeMySQLDSN(dsn string) string {
	if cfg, err := mysqldriver.ParseDSN(dsn); err == nil && (cfg.Net == "tcp" || cfg.Net == "unix") {
		return cfg.FormatDSN()
	}

	var candidates []string
	if i := strings.LastIndex(dsn, "@("); i >= 0 {
		candidates = append(candidates, dsn[:i]+"@tcp"+dsn[i+1:])
	}
	if m := bareMySQLAddr.FindStringSubmatch(dsn); m != nil {
		candidates = append(candidates, m[1]+"@tcp("+m[2]+")"+m[3])
	}
	for _, c := range candidates {
		if cfg, err := mysqldriver.ParseDSN(c); err == nil {
			return cfg.FormatDSN()
		}
	}
	return dsn
}

func encodeURLUserinfo(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	query := ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i:]
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return dsn
	}
	user, pass, _ := strings.Cut(rest[:at], ":")
	return scheme + "://" + url.PathEscape(user) + ":" + url.PathEscape(pass) + "@" + rest[at+1:] + query
}
