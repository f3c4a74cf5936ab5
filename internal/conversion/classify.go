// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package conversion

import (
	"encoding/json"
	"strings"
)

// FailureKind sorts service-side conversion failures into the cases the
// user can act on.
type FailureKind string

const (
	// KindExtension: a streaming method was given something other than N-Triples.
	KindExtension FailureKind = "extension_mismatch"
	// KindOutOfMemory: the input was too large for the chosen method.
	KindOutOfMemory FailureKind = "out_of_memory"
	// KindParse: the input is not valid RDF.
	KindParse FailureKind = "parse_error"
	// KindUnknown: the body was readable but matched nothing.
	KindUnknown FailureKind = "unknown"
	// KindUnreadable: the body was not JSON.
	KindUnreadable FailureKind = "unreadable"
)

// kindByCode maps structured error codes to kinds.
var kindByCode = map[string]FailureKind{
	"INVALID_EXTENSION": KindExtension,
	"OUT_OF_MEMORY":     KindOutOfMemory,
	"PARSE_ERROR":       KindParse,
}

type failureBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classifyFailure reads a 500 body. A structured code wins; otherwise the
// message text is matched by legacyKind.
func classifyFailure(body []byte) (kind FailureKind, code, detail string) {
	var fb failureBody
	if err := json.Unmarshal(body, &fb); err != nil {
		return KindUnreadable, "", ""
	}

	detail = fb.Message
	if detail == "" {
		detail = fb.Error
	}
	code = strings.ToUpper(strings.TrimSpace(fb.Code))
	if k, ok := kindByCode[code]; ok {
		return k, code, detail
	}
	return legacyKind(detail), code, detail
}

// legacyKind is the compatibility shim for service versions that only send
// free-text messages. Keep all substring heuristics here.
func legacyKind(msg string) FailureKind {
	switch {
	case strings.Contains(msg, "Invalid file extension"),
		strings.Contains(msg, "Expecting extension .nt"):
		return KindExtension
	case strings.Contains(msg, "OutOfMemoryError"),
		strings.Contains(msg, "memory"):
		return KindOutOfMemory
	case strings.Contains(msg, "ParseException"),
		strings.Contains(msg, "parsing"):
		return KindParse
	}
	return KindUnknown
}
