// Package seriesspec parses and validates series definition documents.
//
// Definitions are authored in YAML and validated in two layers: the raw
// document is unified against an embedded CUE schema (field types, bounds,
// symbol shape), then the surviving values get structural checks the schema
// cannot express (timestamp parsing, duplicate symbols, amount magnitudes).
// Validation collects every error rather than failing on the first.
package seriesspec

import (
	_ "embed"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Validation error codes (E200-E299)
const (
	ErrDocumentUnreadable = "E200" // file or YAML decode failure
	ErrSchemaViolation    = "E201" // CUE schema unification failure
	ErrBadTimestamp       = "E202" // maturity not RFC 3339
	ErrDuplicateSymbol    = "E203" // same symbol used twice
	ErrBadAmount          = "E204" // amount string not a positive integer
	ErrMissingRate        = "E205" // vault adapter without rate_per_sec
)

// ValidationError is one schema or structural violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// AdapterKind selects the yield-source implementation.
type AdapterKind string

const (
	AdapterMock  AdapterKind = "mock"
	AdapterVault AdapterKind = "vault"
)

// Adapter is the resolved adapter portion of a definition.
type Adapter struct {
	Kind         AdapterKind
	Account      string
	InitialScale *big.Int
	// RatePerSec is the per-second scale increment; vault adapters only.
	RatePerSec *big.Int
}

// Series is one resolved, validated series definition.
type Series struct {
	Name           string
	Symbol         string
	Maturity       time.Time
	TiltBPS        int64
	IssuanceFeeBPS int64
	Management     string
	Adapter        Adapter
}

// raw document shape, as authored.
type rawDocument struct {
	Series []rawSeries `yaml:"series"`
}

type rawSeries struct {
	Name           string     `yaml:"name"`
	Symbol         string     `yaml:"symbol"`
	Maturity       string     `yaml:"maturity"`
	TiltBPS        int64      `yaml:"tilt_bps"`
	IssuanceFeeBPS int64      `yaml:"issuance_fee_bps"`
	Management     string     `yaml:"management"`
	Adapter        rawAdapter `yaml:"adapter"`
}

type rawAdapter struct {
	Kind         string `yaml:"kind"`
	Account      string `yaml:"account"`
	InitialScale string `yaml:"initial_scale"`
	RatePerSec   string `yaml:"rate_per_sec"`
}

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
)

func schema() cue.Value {
	schemaOnce.Do(func() {
		schemaVal = cuecontext.New().CompileString(schemaSource, cue.Filename("schema.cue"))
	})
	return schemaVal
}

// Load reads and parses a definition file.
func Load(path string) ([]Series, []ValidationError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []ValidationError{{
			Field:   path,
			Message: err.Error(),
			Code:    ErrDocumentUnreadable,
		}}
	}
	return Parse(data)
}

// Parse validates a YAML definition document and resolves it. All
// violations found are returned together; the resolved slice is non-nil
// only when the document is fully valid.
func Parse(data []byte) ([]Series, []ValidationError) {
	// Schema layer: unify the untyped document against the CUE schema.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, []ValidationError{{
			Field:   "document",
			Message: err.Error(),
			Code:    ErrDocumentUnreadable,
		}}
	}
	if errs := validateAgainstSchema(doc); len(errs) > 0 {
		return nil, errs
	}

	// Structural layer: typed decode plus the checks the schema cannot do.
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, []ValidationError{{
			Field:   "document",
			Message: err.Error(),
			Code:    ErrDocumentUnreadable,
		}}
	}

	var errs []ValidationError
	seen := make(map[string]bool)
	out := make([]Series, 0, len(raw.Series))

	for i, rs := range raw.Series {
		path := func(field string) string { return fmt.Sprintf("series[%d].%s", i, field) }

		s := Series{
			Name:           norm.NFC.String(strings.TrimSpace(rs.Name)),
			Symbol:         norm.NFC.String(strings.TrimSpace(rs.Symbol)),
			TiltBPS:        rs.TiltBPS,
			IssuanceFeeBPS: rs.IssuanceFeeBPS,
			Management:     rs.Management,
		}

		if seen[s.Symbol] {
			errs = append(errs, ValidationError{
				Field:   path("symbol"),
				Message: fmt.Sprintf("duplicate symbol %q", s.Symbol),
				Code:    ErrDuplicateSymbol,
			})
		}
		seen[s.Symbol] = true

		maturity, err := time.Parse(time.RFC3339, rs.Maturity)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   path("maturity"),
				Message: fmt.Sprintf("not an RFC 3339 timestamp: %q", rs.Maturity),
				Code:    ErrBadTimestamp,
			})
		}
		s.Maturity = maturity.UTC()

		s.Adapter = Adapter{
			Kind:    AdapterKind(rs.Adapter.Kind),
			Account: rs.Adapter.Account,
		}
		if v, ok := parseAmount(rs.Adapter.InitialScale); ok {
			s.Adapter.InitialScale = v
		} else {
			errs = append(errs, ValidationError{
				Field:   path("adapter.initial_scale"),
				Message: fmt.Sprintf("not a positive integer: %q", rs.Adapter.InitialScale),
				Code:    ErrBadAmount,
			})
		}
		switch s.Adapter.Kind {
		case AdapterVault:
			if rs.Adapter.RatePerSec == "" {
				errs = append(errs, ValidationError{
					Field:   path("adapter.rate_per_sec"),
					Message: "required for vault adapters",
					Code:    ErrMissingRate,
				})
				break
			}
			if v, ok := parseAmount(rs.Adapter.RatePerSec); ok {
				s.Adapter.RatePerSec = v
			} else {
				errs = append(errs, ValidationError{
					Field:   path("adapter.rate_per_sec"),
					Message: fmt.Sprintf("not a positive integer: %q", rs.Adapter.RatePerSec),
					Code:    ErrBadAmount,
				})
			}
		case AdapterMock:
			// rate_per_sec ignored for mocks.
		}

		out = append(out, s)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// validateAgainstSchema unifies the document with the embedded schema and
// maps each CUE error to a ValidationError.
func validateAgainstSchema(doc any) []ValidationError {
	s := schema()
	if err := s.Err(); err != nil {
		return cueToValidationErrors(err)
	}
	v := s.Context().Encode(doc)
	if err := v.Err(); err != nil {
		return cueToValidationErrors(err)
	}
	unified := s.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueToValidationErrors(err)
	}
	return nil
}

func cueToValidationErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		field := strings.Join(e.Path(), ".")
		if field == "" {
			field = "document"
		}
		out = append(out, ValidationError{
			Field:   field,
			Message: e.Error(),
			Code:    ErrSchemaViolation,
		})
	}
	if len(out) == 0 {
		out = append(out, ValidationError{
			Field:   "document",
			Message: err.Error(),
			Code:    ErrSchemaViolation,
		})
	}
	return out
}

// parseAmount parses a base-10 positive integer string.
func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, false
	}
	return v, true
}
