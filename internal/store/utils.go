package store

import (
	"context"
	"encoding/base64"
	"strings"
)

const tokenPrefix = "enc:"

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

func nullOrString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

// upsertClause 按方言返回主键冲突时更新 columns 的子句。
func (s *Store) upsertClause(key string, cols ...string) string {
	parts := make([]string, 0, len(cols))
	if s.IsSQLite() {
		for _, c := range cols {
			parts = append(parts, c+"=excluded."+c)
		}
		return " ON CONFLICT(" + key + ") DO UPDATE SET " + strings.Join(parts, ", ")
	}
	for _, c := range cols {
		parts = append(parts, c+"=VALUES("+c+")")
	}
	return " ON DUPLICATE KEY UPDATE " + strings.Join(parts, ", ")
}

func encodeToken(token string) string {
	if token == "" {
		return ""
	}
	return tokenPrefix + base64.StdEncoding.EncodeToString([]byte(token))
}

func decodeToken(val string) string {
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, tokenPrefix) {
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(val, tokenPrefix))
		if err == nil {
			return string(b)
		}
	}
	return val
}
