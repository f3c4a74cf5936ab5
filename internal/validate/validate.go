// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks conversion form input before anything is sent to
// the service. All functions are pure: they never mutate their arguments and
// return the same answer for the same input.
package validate

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// MaxFileSize is the largest upload accepted, in bytes (100 MiB).
const MaxFileSize int64 = 100 * 1024 * 1024

// extensions lists the RDF serializations the service reads.
var extensions = []string{
	"nq", "nt", "jsonl", "jsonld", "n3", "ndjson", "ndjsonld", "owl",
	"rdf", "rdfs", "rj", "trig", "trigs", "trix", "ttl", "ttls",
}

// namingConventions lists the column naming styles the service knows.
var namingConventions = []string{
	"camelCase",
	"PascalCase",
	"snake_case",
	"SCREAMING_SNAKE_CASE",
	"kebab-case",
	"Title Case",
	"dot.notation",
	"original",
}

var (
	filenamePattern  = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	languagesPattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(,[a-zA-Z]{2,3})*$`)
	private172       = regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`)
)

// Extensions returns the accepted file extensions, without dots.
func Extensions() []string {
	return slices.Clone(extensions)
}

// NamingConventions returns the accepted naming convention names.
func NamingConventions() []string {
	return slices.Clone(namingConventions)
}

// IsValidURL reports whether raw is an absolute http(s) URL whose host is
// not loopback or in a private IPv4 range. This is a basic SSRF filter: IPv6
// literals and DNS rebinding are not handled.
func IsValidURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" ||
		host == "localhost" ||
		host == "127.0.0.1" ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "10.") ||
		private172.MatchString(host) {
		return false
	}
	return true
}

// IsValidFilename reports whether name is a bare file name made only of
// letters, digits, dot, underscore and dash, with no traversal sequence.
func IsValidFilename(name string) bool {
	if name == "" {
		return false
	}
	if strings.Contains(name, "..") ||
		strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return filenamePattern.MatchString(name)
}

// HasValidExtension reports whether the text after the last dot of name is
// an accepted RDF extension, ignoring case.
func HasValidExtension(name string) bool {
	if name == "" {
		return false
	}
	ext := strings.ToLower(name[strings.LastIndex(name, ".")+1:])
	return slices.Contains(extensions, ext)
}

// IsValidFileSize reports whether size is positive and at most MaxFileSize.
func IsValidFileSize(size int64) bool {
	return size > 0 && size <= MaxFileSize
}

// IsValidPreferredLanguages accepts an empty value or comma-separated
// 2-3 letter codes such as "en,cs,de".
func IsValidPreferredLanguages(languages string) bool {
	trimmed := strings.TrimSpace(languages)
	if trimmed == "" {
		return true
	}
	return languagesPattern.MatchString(trimmed)
}

// IsValidNamingConvention accepts an empty value or one of NamingConventions.
func IsValidNamingConvention(convention string) bool {
	trimmed := strings.TrimSpace(convention)
	if trimmed == "" {
		return true
	}
	return slices.Contains(namingConventions, trimmed)
}

// BaseName strips everything up to the last forward or back slash.
func BaseName(name string) string {
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		return name[i+1:]
	}
	return name
}
