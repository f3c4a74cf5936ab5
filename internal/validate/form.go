// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"strings"

	"github.com/pdiddy/rdfcsv/pkg/types"
)

// Code identifies a violated rule independently of its wording.
type Code string

const (
	CodeMissingInput      Code = "missing_input"
	CodeInvalidURL        Code = "invalid_url"
	CodeInvalidExtension  Code = "invalid_extension"
	CodeFileTooLarge      Code = "file_too_large"
	CodeInvalidFilename   Code = "invalid_filename"
	CodeInvalidLanguages  Code = "invalid_languages"
	CodeInvalidConvention Code = "invalid_naming_convention"
)

// Violation is one failed rule with an English description.
type Violation struct {
	Code    Code   `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Result is the outcome of Form.
type Result struct {
	Valid      bool        `json:"valid" yaml:"valid"`
	Violations []Violation `json:"violations,omitempty" yaml:"violations,omitempty"`
}

// Messages returns the English descriptions of all violations.
func (r Result) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Message
	}
	return out
}

var descriptions = map[Code]string{
	CodeMissingInput:      "Please provide either a file or a URL.",
	CodeInvalidURL:        "Invalid URL provided. Please use a valid http or https URL.",
	CodeInvalidExtension:  "Invalid file type. Please upload an RDF file.",
	CodeFileTooLarge:      "File is too large. Maximum size is 100MB.",
	CodeInvalidFilename:   "Invalid filename detected.",
	CodeInvalidLanguages:  "Invalid language codes. Use 2-3 letter codes separated by commas (e.g., en,cs,de).",
	CodeInvalidConvention: "Invalid naming convention selected.",
}

// Describe returns the English description of code.
func Describe(code Code) string {
	return descriptions[code]
}

// Form applies every rule to req as the user filled it in. The URL and file
// branches are checked independently: a file that accompanies a URL must
// still be acceptable even though the URL wins at submission.
func Form(req types.ConversionRequest) Result {
	var violations []Violation
	add := func(c Code) {
		violations = append(violations, Violation{Code: c, Message: descriptions[c]})
	}

	sourceURL := strings.TrimSpace(req.SourceURL)
	hasFile := req.File != nil && req.File.Size > 0

	if sourceURL == "" && !hasFile {
		add(CodeMissingInput)
	}

	if sourceURL != "" && !IsValidURL(sourceURL) {
		add(CodeInvalidURL)
	}

	if hasFile {
		if !HasValidExtension(req.File.Name) {
			add(CodeInvalidExtension)
		}
		if !IsValidFileSize(req.File.Size) {
			add(CodeFileTooLarge)
		}
		if !IsValidFilename(BaseName(req.File.Name)) {
			add(CodeInvalidFilename)
		}
	}

	if !IsValidPreferredLanguages(req.PreferredLanguages) {
		add(CodeInvalidLanguages)
	}
	if !IsValidNamingConvention(req.NamingConvention) {
		add(CodeInvalidConvention)
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}
