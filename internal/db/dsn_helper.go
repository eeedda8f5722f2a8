package db

import (
	"net/url"
	"strconv"
	"strings"
)

// DSNOptions are session settings appended to a connection string
type DSNOptions struct {
	StatementTimeoutMs int    // statement_timeout, 0 means 60s
	ApplicationName    string // application_name shown in pg_stat_activity
}

// AugmentDSN adds statement_timeout and application_name to a DSN unless
// already present. Supports both URL format (postgresql://...) and
// key=value format.
func AugmentDSN(dsn string, opts DSNOptions) string {
	if dsn == "" {
		return dsn
	}

	timeoutMs := opts.StatementTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 60000
	}

	params := [][2]string{{"statement_timeout", strconv.Itoa(timeoutMs)}}
	if opts.ApplicationName != "" {
		params = append(params, [2]string{"application_name", opts.ApplicationName})
	}

	isURL := strings.HasPrefix(dsn, "postgresql://") || strings.HasPrefix(dsn, "postgres://")
	for _, p := range params {
		if strings.Contains(dsn, p[0]) {
			continue
		}
		if isURL {
			separator := "?"
			if strings.Contains(dsn, "?") {
				separator = "&"
			}
			dsn += separator + p[0] + "=" + url.QueryEscape(p[1])
		} else {
			dsn += " " + p[0] + "=" + quoteKeyValue(p[1])
		}
	}

	return dsn
}

// quoteKeyValue quotes a key=value parameter when it contains spaces or quotes
func quoteKeyValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
