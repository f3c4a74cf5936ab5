// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package messages holds every user-facing string in English and Czech and
// turns errors into safe, localized text that never carries internal detail.
package messages

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/pdiddy/rdfcsv/internal/validate"
)

// Lang is a supported user-facing locale.
type Lang string

const (
	English Lang = "en"
	Czech   Lang = "cs"
)

var matcher = language.NewMatcher([]language.Tag{language.English, language.Czech})

// ParseLang maps a BCP 47 tag such as "cs-CZ" onto a supported locale,
// falling back to English.
func ParseLang(tag string) Lang {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return English
	}
	_, index, confidence := matcher.Match(t)
	if confidence == language.No || index != 1 {
		return English
	}
	return Czech
}

// Key names a catalog entry.
type Key string

const (
	KeyGeneric          Key = "generic"
	KeyRateLimited      Key = "rate_limited"
	KeyInvalidURL       Key = "invalid_url"
	KeyInProgress       Key = "in_progress"
	KeyProgressStatus   Key = "progress_status"
	KeyDelivered        Key = "delivered"
	KeyTimedOut         Key = "timed_out"
	KeyNotFound         Key = "not_found"
	KeyExtension        Key = "failed_extension"
	KeyOutOfMemory      Key = "failed_memory"
	KeyParse            Key = "failed_parse"
	KeyConversionFailed Key = "failed"
	KeyUnexpected       Key = "unexpected"
	KeyCanceled         Key = "canceled"
	KeyBusy             Key = "busy"
	KeyServiceReady     Key = "service_ready"
	KeyServiceLoading   Key = "service_loading"
)

type text struct {
	en, cs string
}

func (t text) in(lang Lang) string {
	if lang == Czech && t.cs != "" {
		return t.cs
	}
	return t.en
}

var catalog = map[Key]text{
	KeyGeneric: {
		en: "An error occurred while processing your request. Please try again later.",
		cs: "Při zpracování vašeho požadavku došlo k chybě. Zkuste to prosím později.",
	},
	KeyRateLimited: {
		en: "Too many requests. Please wait %d seconds.",
		cs: "Příliš mnoho požadavků. Počkejte prosím %d sekund.",
	},
	KeyInvalidURL: {
		en: "Invalid URL. Please use a valid http or https URL.",
		cs: "Neplatná URL adresa. Použijte prosím platnou http nebo https URL.",
	},
	KeyInProgress: {
		en: "Conversion in progress... Please wait.",
		cs: "Konverze probíhá... Prosím čekejte.",
	},
	KeyProgressStatus: {
		en: "Conversion in progress... (%s)",
		cs: "Konverze probíhá... (%s)",
	},
	KeyDelivered: {
		en: "The converted file has been successfully delivered.",
		cs: "Konvertovaný soubor úspěšně dorazil.",
	},
	KeyTimedOut: {
		en: "Conversion is taking too long. Please try again later.",
		cs: "Konverze trvá příliš dlouho. Zkuste to prosím později.",
	},
	KeyNotFound: {
		en: "Session not found. Please try the conversion again.",
		cs: "Relace nebyla nalezena. Zkuste konverzi znovu.",
	},
	KeyExtension: {
		en: `Error: "Big File Streaming" and "Streaming" methods require N-Triples format files with .nt extension. Please use "RDF4J" method or a .nt file.`,
		cs: `Chyba: Metody "Big File Streaming" a "Streaming" vyžadují soubory ve formátu N-Triples s příponou .nt. Použijte prosím metodu "RDF4J" nebo soubor s příponou .nt.`,
	},
	KeyOutOfMemory: {
		en: `Error: File is too large. Please try "Big File Streaming" method.`,
		cs: `Chyba: Soubor je příliš velký. Zkuste prosím metodu "Big File Streaming".`,
	},
	KeyParse: {
		en: "Error: File contains invalid RDF data. Please check the file format.",
		cs: "Chyba: Soubor obsahuje neplatná RDF data. Zkontrolujte prosím formát souboru.",
	},
	KeyConversionFailed: {
		en: "Conversion failed. Please try again.",
		cs: "Konverze selhala. Zkuste to prosím znovu.",
	},
	KeyUnexpected: {
		en: "Unexpected error while checking conversion status.",
		cs: "Neočekávaná chyba při kontrole stavu konverze.",
	},
	KeyCanceled: {
		en: "Conversion canceled.",
		cs: "Konverze byla zrušena.",
	},
	KeyBusy: {
		en: "A conversion is already in progress. Please wait for it to finish.",
		cs: "Konverze již probíhá. Počkejte prosím na její dokončení.",
	},
	KeyServiceReady: {
		en: "The Web Service is ready!",
		cs: "Webová služba je připravená!",
	},
	KeyServiceLoading: {
		en: "The Web Service is loading...",
		cs: "Webová služba se načítá...",
	},
}

// Text returns the catalog entry for key in lang. Args fill the entry's
// format verbs. Unknown keys yield the generic message.
func Text(key Key, lang Lang, args ...any) string {
	t, ok := catalog[key]
	if !ok {
		t = catalog[KeyGeneric]
	}
	s := t.in(lang)
	if len(args) > 0 {
		return fmt.Sprintf(s, args...)
	}
	return s
}

var violations = map[validate.Code]string{
	validate.CodeMissingInput:      "Zadejte prosím soubor nebo URL adresu.",
	validate.CodeInvalidURL:        "Neplatná URL adresa. Použijte prosím platnou http nebo https URL.",
	validate.CodeInvalidExtension:  "Neplatný typ souboru. Nahrajte prosím RDF soubor.",
	validate.CodeFileTooLarge:      "Soubor je příliš velký. Maximální velikost je 100 MB.",
	validate.CodeInvalidFilename:   "Byl zjištěn neplatný název souboru.",
	validate.CodeInvalidLanguages:  "Neplatné kódy jazyků. Použijte dvou až třípísmenné kódy oddělené čárkami (např. en,cs,de).",
	validate.CodeInvalidConvention: "Byla zvolena neplatná konvence pojmenování.",
}

// Violation localizes a validation failure.
func Violation(v validate.Violation, lang Lang) string {
	if lang == Czech {
		if s, ok := violations[v.Code]; ok {
			return s
		}
	}
	if v.Message != "" {
		return v.Message
	}
	return validate.Describe(v.Code)
}

// Violations localizes and joins all failures of r with spaces.
func Violations(r validate.Result, lang Lang) string {
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = Violation(v, lang)
	}
	return strings.Join(parts, " ")
}
