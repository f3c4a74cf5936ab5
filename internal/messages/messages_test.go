// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package messages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/rdfcsv/internal/conversion"
	"github.com/pdiddy/rdfcsv/internal/validate"
	"github.com/pdiddy/rdfcsv/pkg/types"
)

func validateRequest() types.ConversionRequest {
	return types.ConversionRequest{SourceURL: "   "}
}

func TestParseLang(t *testing.T) {
	tests := []struct {
		tag  string
		want Lang
	}{
		{"en", English},
		{"cs", Czech},
		{"cs-CZ", Czech},
		{" CS ", Czech},
		{"en-US", English},
		{"de", English},
		{"", English},
		{"not a tag!", English},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLang(tt.tag))
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "Konvertovaný soubor úspěšně dorazil.", Text(KeyDelivered, Czech))
	assert.Equal(t, "Too many requests. Please wait 12 seconds.", Text(KeyRateLimited, English, 12))
	assert.Equal(t, "Konverze probíhá... (PARSING)", Text(KeyProgressStatus, Czech, "PARSING"))
	assert.Equal(t, Text(KeyGeneric, English), Text(Key("no-such-key"), English))
}

func TestCatalogComplete(t *testing.T) {
	for key, entry := range catalog {
		assert.NotEmpty(t, entry.en, "english text for %s", key)
		assert.NotEmpty(t, entry.cs, "czech text for %s", key)
	}
}

func TestViolations(t *testing.T) {
	result := validate.Form(validateRequest())
	require.False(t, result.Valid)

	assert.Equal(t, "Zadejte prosím soubor nebo URL adresu.", Violations(result, Czech))
	assert.Equal(t, validate.Describe(validate.CodeMissingInput), Violations(result, English))

	for code := range violations {
		assert.NotEmpty(t, Violation(validate.Violation{Code: code}, English), "english text for %s", code)
	}
}

func TestSafeMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		lang Lang
		want string
	}{
		{
			name: "legacy 413 in czech",
			err:  errors.New("Error: 413"),
			lang: Czech,
			want: "Soubor je příliš velký. Nahrajte prosím menší soubor.",
		},
		{
			name: "typed 503",
			err:  &conversion.ServerError{Status: 503, StatusText: "Service Unavailable"},
			lang: English,
			want: "Service temporarily unavailable. Please try again later.",
		},
		{
			name: "invalid request",
			err:  &conversion.InvalidRequestError{Body: "stack trace at Foo.java:12"},
			lang: English,
			want: "Invalid request. Please check your input.",
		},
		{
			name: "wrapped 429",
			err:  fmt.Errorf("submitting: %w", &conversion.ServerError{Status: 429, StatusText: "Too Many Requests"}),
			lang: Czech,
			want: "Příliš mnoho požadavků. Počkejte prosím před dalším pokusem.",
		},
		{
			name: "unknown status",
			err:  &conversion.ServerError{Status: 502, StatusText: "Bad Gateway"},
			lang: English,
			want: Text(KeyGeneric, English),
		},
		{
			name: "no status",
			err:  errors.New("dial tcp 10.0.0.1:443: connection refused"),
			lang: Czech,
			want: "Při zpracování vašeho požadavku došlo k chybě. Zkuste to prosím později.",
		},
		{
			name: "nil",
			lang: English,
			want: Text(KeyGeneric, English),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeMessage(tt.err, tt.lang, nil))
		})
	}
}

func TestSafeMessage_LogsDetailOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := errors.New("database password=hunter2 rejected")
	msg := SafeMessage(err, English, logger)

	assert.NotContains(t, msg, "hunter2")
	assert.Contains(t, buf.String(), "hunter2")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Key
	}{
		{"in flight", conversion.ErrSessionInFlight, KeyBusy},
		{"canceled", context.Canceled, KeyCanceled},
		{"deadline", fmt.Errorf("poll: %w", context.DeadlineExceeded), KeyCanceled},
		{"timeout", &conversion.TimeoutError{SessionID: "s", Attempts: 120}, KeyTimedOut},
		{"not found", &conversion.NotFoundError{SessionID: "s"}, KeyNotFound},
		{"extension", &conversion.ComputationError{Kind: conversion.KindExtension}, KeyExtension},
		{"memory", &conversion.ComputationError{Kind: conversion.KindOutOfMemory}, KeyOutOfMemory},
		{"parse", &conversion.ComputationError{Kind: conversion.KindParse}, KeyParse},
		{"unknown failure", &conversion.ComputationError{Kind: conversion.KindUnknown, Detail: "NullPointerException"}, KeyConversionFailed},
		{"unreadable failure", &conversion.ComputationError{Kind: conversion.KindUnreadable}, KeyConversionFailed},
		{"unexpected", &conversion.UnexpectedError{SessionID: "s", Status: 418}, KeyUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, lang := range []Lang{English, Czech} {
				got := Describe(tt.err, lang, nil)
				require.NotNil(t, got)
				assert.Equal(t, Text(tt.want, lang), got.UserMessage)
				assert.Equal(t, got.UserMessage, got.Error())
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}
}

func TestDescribe_FallsBackToSafeMessage(t *testing.T) {
	err := &conversion.ServerError{Status: 413, StatusText: "Payload Too Large"}
	got := Describe(err, Czech, nil)
	require.NotNil(t, got)
	assert.Equal(t, "Soubor je příliš velký. Nahrajte prosím menší soubor.", got.UserMessage)

	transport := &conversion.TransportError{Err: errors.New("no route to host 192.168.1.4")}
	got = Describe(transport, English, nil)
	assert.Equal(t, Text(KeyGeneric, English), got.UserMessage)
	assert.NotContains(t, got.Error(), "192.168")
}

func TestDescribe_ClientTimeoutIsNotCancellation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "submission timeout",
			err:  &conversion.TransportError{Err: fmt.Errorf("Post: %w", context.DeadlineExceeded)},
			want: Text(KeyGeneric, English),
		},
		{
			name: "status request timeout",
			err:  &conversion.UnexpectedError{SessionID: "s", Err: fmt.Errorf("Get: %w", context.DeadlineExceeded)},
			want: Text(KeyUnexpected, English),
		},
		{
			name: "archive download interrupted",
			err:  &conversion.UnexpectedError{SessionID: "s", Err: fmt.Errorf("saving archive: %w", context.Canceled)},
			want: Text(KeyUnexpected, English),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe(tt.err, English, nil)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.UserMessage)
			assert.NotEqual(t, Text(KeyCanceled, English), got.UserMessage)
		})
	}
}

func TestDescribe_Nil(t *testing.T) {
	assert.Nil(t, Describe(nil, English, nil))
}
