package main

import (
	"fmt"
	"strconv"
	"strings"

	"LevelVault/internal/gamesave/app/migrate"
	"LevelVault/internal/gamesave/domain/object"
)

// parseRange 解析 "5-10:100" 或 "5:100"（单个 id）。
func parseRange(s string) (migrate.Range, error) {
	src, dst, ok := strings.Cut(s, ":")
	if !ok {
		return migrate.Range{}, fmt.Errorf("range %q: want start-end:target", s)
	}
	span, err := parseSpan(src)
	if err != nil {
		return migrate.Range{}, fmt.Errorf("range %q: %w", s, err)
	}
	target, err := strconv.Atoi(strings.TrimSpace(dst))
	if err != nil {
		return migrate.Range{}, fmt.Errorf("range %q: bad target: %w", s, err)
	}
	return migrate.Range{SourceStart: span.Start, SourceEnd: span.End, TargetStart: target}, nil
}

// parseSpan 解析 "1-10" 或 "7"。
func parseSpan(s string) (migrate.Span, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return migrate.Span{}, fmt.Errorf("bad start: %w", err)
	}
	end := start
	if ok {
		if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return migrate.Span{}, fmt.Errorf("bad end: %w", err)
		}
	}
	return migrate.Span{Start: start, End: end}, nil
}

func parseKind(s string) (object.IDKind, error) {
	kind, ok := object.ParseIDKind(s)
	if !ok {
		return 0, fmt.Errorf("unknown id kind %q (group / color / item / block)", s)
	}
	return kind, nil
}
