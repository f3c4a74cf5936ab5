// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package messages

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/pdiddy/rdfcsv/internal/conversion"
)

// SafeError pairs the text shown to the user with the error that caused it.
// Error returns only the user text; the cause is reachable through Unwrap
// for local diagnostics.
type SafeError struct {
	UserMessage string
	Err         error
}

func (e *SafeError) Error() string { return e.UserMessage }

func (e *SafeError) Unwrap() error { return e.Err }

// safeStatus lists the HTTP statuses with a dedicated message.
var safeStatus = map[int]text{
	400: {
		en: "Invalid request. Please check your input.",
		cs: "Neplatný požadavek. Zkontrolujte prosím své zadání.",
	},
	409: {
		en: "The file is currently in use. Please try again later.",
		cs: "Soubor je právě používán. Zkuste to prosím později.",
	},
	413: {
		en: "The file is too large. Please upload a smaller file.",
		cs: "Soubor je příliš velký. Nahrajte prosím menší soubor.",
	},
	429: {
		en: "Too many requests. Please wait before trying again.",
		cs: "Příliš mnoho požadavků. Počkejte prosím před dalším pokusem.",
	},
	503: {
		en: "Service temporarily unavailable. Please try again later.",
		cs: "Služba je dočasně nedostupná. Zkuste to prosím později.",
	},
}

// statusCoder is implemented by errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// legacyStatusPattern recognizes errors that only carry their status in the
// message text, as "Error: 413".
var legacyStatusPattern = regexp.MustCompile(`Error:\s*(\d{3})`)

func statusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	if m := legacyStatusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// SafeMessage returns a localized message for err that reveals nothing
// about it beyond a known HTTP status. The error itself goes to logger only.
func SafeMessage(err error, lang Lang, logger *slog.Logger) string {
	if err == nil {
		return Text(KeyGeneric, lang)
	}
	if t, ok := safeStatus[statusOf(err)]; ok {
		logDetail(logger, slog.LevelDebug, err)
		return t.in(lang)
	}
	logDetail(logger, slog.LevelError, err)
	return Text(KeyGeneric, lang)
}

// Describe maps any error of a conversion run to a SafeError.
//
// Only a bare context error means the run was canceled. HTTP client
// timeouts also match context.DeadlineExceeded, but the client reports them
// wrapped in TransportError or UnexpectedError, and those keep their own
// messages.
func Describe(err error, lang Lang, logger *slog.Logger) *SafeError {
	key := Key("")
	var (
		timeout     *conversion.TimeoutError
		notFound    *conversion.NotFoundError
		computation *conversion.ComputationError
		unexpected  *conversion.UnexpectedError
		transport   *conversion.TransportError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, conversion.ErrSessionInFlight):
		key = KeyBusy
	case errors.As(err, &timeout):
		key = KeyTimedOut
	case errors.As(err, &notFound):
		key = KeyNotFound
	case errors.As(err, &computation):
		key = computationKey(computation.Kind)
	case errors.As(err, &unexpected):
		key = KeyUnexpected
	case errors.As(err, &transport):
		return &SafeError{UserMessage: SafeMessage(err, lang, logger), Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		key = KeyCanceled
	default:
		return &SafeError{UserMessage: SafeMessage(err, lang, logger), Err: err}
	}

	logDetail(logger, slog.LevelError, err)
	return &SafeError{UserMessage: Text(key, lang), Err: err}
}

func computationKey(kind conversion.FailureKind) Key {
	switch kind {
	case conversion.KindExtension:
		return KeyExtension
	case conversion.KindOutOfMemory:
		return KeyOutOfMemory
	case conversion.KindParse:
		return KeyParse
	}
	return KeyConversionFailed
}

func logDetail(logger *slog.Logger, level slog.Level, err error) {
	if logger == nil {
		return
	}
	logger.Log(context.Background(), level, "error details", "error", err)
}
