// Package outname derives file names for generated documents.
package outname

import (
	"path"
	"strings"
	"time"
)

// FallbackBase is used when no usable source name is available.
const FallbackBase = "DnD_Adventure"

// TimestampLayout renders as yyyyMMdd_HHmmss.
const TimestampLayout = "20060102_150405"

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// Timestamp formats t with TimestampLayout.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// DeriveName builds "<stem>_<timestamp>.<ext>". The stem is the base name of
// source with its extension removed; an empty source or stem falls back to
// FallbackBase. A leading dot on ext is optional.
func DeriveName(source, ext, timestamp string) string {
	return derive(source, FallbackBase, ext, timestamp)
}

// DeriveNameWithFallback is DeriveName with a custom fallback base.
func DeriveNameWithFallback(source, fallback, ext, timestamp string) string {
	if strings.TrimSpace(fallback) == "" {
		fallback = FallbackBase
	}
	return derive(source, fallback, ext, timestamp)
}

func derive(source, fallback, ext, timestamp string) string {
	stem := Stem(source)
	if stem == "" {
		stem = fallback
	}
	return stem + "_" + timestamp + "." + strings.TrimPrefix(ext, ".")
}

// Stem returns the base name of source without its extension. Both slash
// and backslash count as separators.
func Stem(source string) string {
	s := strings.TrimSpace(strings.ReplaceAll(source, `\`, "/"))
	s = strings.TrimRight(s, "/")
	if s == "" {
		return ""
	}
	s = path.Base(s)
	s = strings.TrimSuffix(s, path.Ext(s))
	return strings.TrimSpace(s)
}
