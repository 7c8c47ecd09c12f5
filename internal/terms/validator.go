package terms

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

const dateLayout = "2006-01-02"

// Validator checks payloads against the embedded CUE schema.
//
// Thread-safety: methods are safe for concurrent use; evaluation is
// serialised because cue.Context is not.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

var defaultValidator = sync.OnceValues(NewValidator)

// Default returns the shared validator. The embedded schema is compiled once.
func Default() *Validator {
	v, err := defaultValidator()
	if err != nil {
		// The schema is embedded; failing to compile it is a build defect.
		panic(err)
	}
	return v
}

// ParseExport decodes and validates an export request.
func (v *Validator) ParseExport(data []byte) (ExportRequest, error) {
	var req ExportRequest
	if err := v.decodeBytes("#ExportRequest", data, &req); err != nil {
		return ExportRequest{}, err
	}
	if err := checkDateRange(req.DateRange); err != nil {
		return ExportRequest{}, err
	}
	return req, nil
}

// ValidateExport validates an export request built in Go.
func (v *Validator) ValidateExport(req ExportRequest) error {
	var out ExportRequest
	if err := v.decodeValue("#ExportRequest", req, &out); err != nil {
		return err
	}
	return checkDateRange(req.DateRange)
}

// ParseAlertConfig decodes and validates an alert configuration.
func (v *Validator) ParseAlertConfig(data []byte) (AlertConfig, error) {
	var cfg AlertConfig
	if err := v.decodeBytes("#AlertConfig", data, &cfg); err != nil {
		return AlertConfig{}, err
	}
	if cfg.NotificationChannels == nil {
		cfg.NotificationChannels = []string{}
	}
	return cfg, nil
}

// ValidateAlertConfig validates an alert configuration built in Go.
func (v *Validator) ValidateAlertConfig(cfg AlertConfig) error {
	if cfg.NotificationChannels == nil {
		cfg.NotificationChannels = []string{}
	}
	var out AlertConfig
	return v.decodeValue("#AlertConfig", cfg, &out)
}

// ParseTerms decodes and validates negotiation terms. The kind field
// selects the schema; defaults (currency) are filled in.
func (v *Validator) ParseTerms(data []byte) (Terms, error) {
	v.mu.Lock()
	val := v.ctx.CompileBytes(data, cue.Filename("terms.json"))
	v.mu.Unlock()
	if err := val.Err(); err != nil {
		return Terms{}, fromCUE("#Terms", err)
	}

	def, err := v.termsDefinition(val)
	if err != nil {
		return Terms{}, err
	}

	var t Terms
	if err := v.decode(def, val, &t); err != nil {
		return Terms{}, err
	}
	return t, nil
}

// ValidateTerms validates terms built in Go and returns them with
// defaults applied.
func (v *Validator) ValidateTerms(t Terms) (Terms, error) {
	def := t.Kind.definition()
	if def == "" {
		return Terms{}, unknownKind(t.Kind)
	}
	var out Terms
	if err := v.decodeValue(def, t, &out); err != nil {
		return Terms{}, err
	}
	return out, nil
}

func (v *Validator) termsDefinition(val cue.Value) (string, error) {
	v.mu.Lock()
	kindVal := val.LookupPath(cue.ParsePath("kind"))
	var kind string
	var err error
	if kindVal.Exists() {
		kind, err = kindVal.String()
	}
	v.mu.Unlock()

	if !kindVal.Exists() {
		return "", &ValidationError{Schema: "#Terms", Issues: []Issue{{Path: "kind", Message: "field is required"}}}
	}
	if err != nil {
		return "", &ValidationError{Schema: "#Terms", Issues: []Issue{{Path: "kind", Message: "must be a string"}}}
	}
	def := Kind(kind).definition()
	if def == "" {
		return "", unknownKind(Kind(kind))
	}
	return def, nil
}

func (v *Validator) decodeBytes(def string, data []byte, out any) error {
	v.mu.Lock()
	val := v.ctx.CompileBytes(data, cue.Filename("payload.json"))
	v.mu.Unlock()
	if err := val.Err(); err != nil {
		return fromCUE(def, err)
	}
	return v.decode(def, val, out)
}

func (v *Validator) decodeValue(def string, in, out any) error {
	v.mu.Lock()
	val := v.ctx.Encode(in)
	v.mu.Unlock()
	if err := val.Err(); err != nil {
		return fromCUE(def, err)
	}
	return v.decode(def, val, out)
}

// decode unifies val with the named definition, requires a concrete
// result and decodes it into out.
func (v *Validator) decode(def string, val cue.Value, out any) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	unified := v.schema.LookupPath(cue.ParsePath(def)).Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fromCUE(def, err)
	}
	if err := unified.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", def, err)
	}
	return nil
}

func checkDateRange(r DateRange) error {
	start, err := time.Parse(dateLayout, r.Start)
	if err != nil {
		return &ValidationError{Schema: "#ExportRequest", Issues: []Issue{{Path: "dateRange.start", Message: "not a calendar date"}}}
	}
	end, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return &ValidationError{Schema: "#ExportRequest", Issues: []Issue{{Path: "dateRange.end", Message: "not a calendar date"}}}
	}
	if end.Before(start) {
		return &ValidationError{Schema: "#ExportRequest", Issues: []Issue{{Path: "dateRange", Message: "end is before start"}}}
	}
	return nil
}

func unknownKind(k Kind) error {
	return &ValidationError{
		Schema: "#Terms",
		Issues: []Issue{{Path: "kind", Message: fmt.Sprintf("unknown kind %q (want flat_fee, cpm, revenue_share or product_gifting)", k)}},
	}
}

// ParseExport validates with the default validator.
func ParseExport(data []byte) (ExportRequest, error) { return Default().ParseExport(data) }

// ValidateExport validates with the default validator.
func ValidateExport(req ExportRequest) error { return Default().ValidateExport(req) }

// ParseAlertConfig validates with the default validator.
func ParseAlertConfig(data []byte) (AlertConfig, error) { return Default().ParseAlertConfig(data) }

// ValidateAlertConfig validates with the default validator.
func ValidateAlertConfig(cfg AlertConfig) error { return Default().ValidateAlertConfig(cfg) }

// ParseTerms validates with the default validator.
func ParseTerms(data []byte) (Terms, error) { return Default().ParseTerms(data) }

// ValidateTerms validates with the default validator.
func ValidateTerms(t Terms) (Terms, error) { return Default().ValidateTerms(t) }
