package repo

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// NormalizeDSN pins the session to UTC, so DATETIME values scan as UTC and
// column defaults are UTC too. It also makes UPDATE report matched rows, which
// the repos rely on to tell "unknown id" from "nothing changed".
func NormalizeDSN(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	mc.Params["time_zone"] = "'+00:00'"
	return mc.FormatDSN(), nil
}
