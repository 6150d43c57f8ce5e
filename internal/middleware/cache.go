package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/config"
)

// captureWriter tees the response body up to limit bytes.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size < cw.limit {
		chunk := b
		if cw.limit > 0 && int64(len(b)) > cw.limit-cw.size {
			chunk = b[:cw.limit-cw.size]
		}
		cw.buf.Write(chunk)
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// Dependents lists, per resource, the other resources whose cached reads
// become stale when it changes.
type Dependents map[string][]string

// DefaultDependents wires the cross-resource effects of the API's writes.
func DefaultDependents() Dependents {
	return Dependents{
		"invoices":                  {"payments", "booking-equipment"},
		"payments":                  {"invoices"},
		"equipment-baskets":         {"booking-equipment", "equipment-items"},
		"booking-equipment":         {"equipment-baskets", "equipment-items", "invoices"},
		"equipment":                 {"equipment-items"},
		"equipment-items":           {"equipment"},
		"equipment-service-history": {"equipment-items", "equipment"},
		"bookings":                  {"booking-dives", "customers"},
		"booking-dives":             {"bookings"},
		"dive-groups":               {"bookings"},
		"customers":                 {"bookings", "invoices", "equipment-baskets"},
		"expenses":                  {"suppliers", "expense-categories"},
		"suppliers":                 {"expenses"},
		"expense-categories":        {"expenses"},
		"settings":                  {"invoices"},
	}
}

// resourceOf returns the first path segment after the API version, e.g.
// "invoices" for /v1/invoices/7/items.
func resourceOf(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}

// cacheKey is "<prefix>:<resource>:<sha1(role uri)>" so one resource can be
// invalidated with a single pattern. The role keeps responses cached for an
// ADMIN from being served to other roles.
func cacheKey(prefix, role string, r *http.Request) string {
	sum := sha1.Sum([]byte(role + " " + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%s:%x", prefix, resourceOf(r.URL.Path), sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}

// invalidationPatterns returns the key patterns to drop after a write to
// resource.
func invalidationPatterns(prefix, resource string, deps Dependents) []string {
	seen := map[string]bool{resource: true}
	out := []string{prefix + ":" + resource + ":*"}
	for _, d := range deps[resource] {
		if !seen[d] {
			seen[d] = true
			out = append(out, prefix+":"+d+":*")
		}
	}
	return out
}

func purge(ctx context.Context, rdb *redis.Client, patterns []string) {
	for _, p := range patterns {
		iter := rdb.Scan(ctx, 0, p, 200).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 200 {
				_ = rdb.Del(ctx, batch...).Err()
				batch = batch[:0]
			}
		}
		if len(batch) > 0 {
			_ = rdb.Del(ctx, batch...).Err()
		}
		if err := iter.Err(); err != nil {
			slog.Warn("cache purge failed", "pattern", p, "err", err)
		}
	}
}

// CtxReadWrote is set by MarkReadWrote.
const CtxReadWrote = "cache_read_wrote"

// MarkReadWrote flags a read that changed stored state, e.g. an invoice
// whose totals were recalculated while loading. The cache then drops the
// resource's keys as it does after a write.
func MarkReadWrote(c echo.Context) { c.Set(CtxReadWrote, true) }

func readWrote(c echo.Context) bool {
	v, _ := c.Get(CtxReadWrote).(bool)
	return v
}

// NewRedisCache serves cached reads and drops the affected resources' keys
// after every successful write. Without Redis it passes requests through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, deps Dependents) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := resourceOf(req.URL.Path)
			if resource == "" || resource == "auth" || resource == "uploads" {
				return next(c)
			}

			if !cfg.Methods[req.Method] {
				err := next(c)
				if err == nil && c.Response().Status < 400 {
					purge(context.WithoutCancel(req.Context()), rdb, invalidationPatterns(cfg.Prefix, resource, deps))
				}
				return err
			}

			role, _ := c.Get(CtxRole).(string)
			key := cacheKey(cfg.Prefix, role, req)
			if bs, err := rdb.Get(req.Context(), key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if readWrote(c) {
				purge(context.WithoutCancel(req.Context()), rdb, invalidationPatterns(cfg.Prefix, resource, deps))
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			hdr.Del("X-Invoice-Reconciled")
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				_ = rdb.SetEx(context.WithoutCancel(req.Context()), key, payload, cfg.TTL).Err()
			}
			return nil
		}
	}
}
