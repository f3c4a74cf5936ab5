// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/rdfcsv/pkg/types"
)

// requestOptions are the form settings shared by every input of one run.
type requestOptions struct {
	PreferredLanguages string
	NamingConvention   string
	Fields             map[string]string
}

// isURL reports whether an input argument names a remote resource rather
// than a local file. Validation decides later whether the scheme is allowed.
func isURL(arg string) bool {
	return strings.Contains(arg, "://")
}

// parseFields turns repeated key=value flags into a map.
func parseFields(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", p)
		}
		fields[key] = value
	}
	return fields, nil
}

// buildRequests creates one request per input. Files are opened and must be
// closed by calling the returned function, also when an error is returned.
func buildRequests(inputs []string, opts requestOptions) ([]types.ConversionRequest, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	reqs := make([]types.ConversionRequest, 0, len(inputs))
	for _, in := range inputs {
		req := types.ConversionRequest{
			PreferredLanguages: opts.PreferredLanguages,
			NamingConvention:   opts.NamingConvention,
			Fields:             opts.Fields,
		}
		if isURL(in) {
			req.SourceURL = in
			reqs = append(reqs, req)
			continue
		}

		info, err := os.Stat(in)
		if err != nil {
			return nil, closeAll, fmt.Errorf("reading input %s: %w", in, err)
		}
		if info.IsDir() {
			return nil, closeAll, fmt.Errorf("input %s is a directory", in)
		}
		f, err := os.Open(in)
		if err != nil {
			return nil, closeAll, fmt.Errorf("opening input %s: %w", in, err)
		}
		closers = append(closers, f)
		req.File = &types.FileInput{Name: in, Size: info.Size(), Content: f}
		reqs = append(reqs, req)
	}
	return reqs, closeAll, nil
}
