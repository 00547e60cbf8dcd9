package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyPlugin     = "plugin"
	KeySpec       = "spec"
	KeyPage       = "page"
	KeyAPIPath    = "api_path"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyCount      = "count"
	KeyStatus     = "status"
	KeyDurationMS = "duration_ms"
	KeyAddr       = "addr"
	KeyRequestID  = "request_id"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr  { return slog.String(KeyBuildID, id) }
func Plugin(name string) slog.Attr { return slog.String(KeyPlugin, name) }
func Spec(source string) slog.Attr { return slog.String(KeySpec, source) }
func Page(rel string) slog.Attr    { return slog.String(KeyPage, rel) }
func APIPath(p string) slog.Attr   { return slog.String(KeyAPIPath, p) }
func Method(m string) slog.Attr    { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr      { return slog.String(KeyPath, p) }
func File(f string) slog.Attr      { return slog.String(KeyFile, f) }
func Count(n int) slog.Attr        { return slog.Int(KeyCount, n) }
func Status(code int) slog.Attr    { return slog.Int(KeyStatus, code) }
func DurationMS(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Addr(a string) slog.Attr       { return slog.String(KeyAddr, a) }
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
