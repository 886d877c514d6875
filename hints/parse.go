package hints

import (
	"fmt"
	"math"

	"sigs.k8s.io/yaml"

	"github.com/arloliu/scil/errs"
)

// document is the YAML/JSON form of Hints. Absent tolerances are unconstrained.
type document struct {
	AbsoluteTolerance             *float64  `json:"absolute_tolerance,omitempty"`
	RelativeTolerancePercent      *float64  `json:"relative_tolerance_percent,omitempty"`
	RelativeErrFinestAbsTolerance *float64  `json:"relative_err_finest_abs_tolerance,omitempty"`
	SignificantDigits             int       `json:"significant_digits,omitempty"`
	SignificantBits               int       `json:"significant_bits,omitempty"`
	ForceCompressionMethods       string    `json:"force_compression_methods,omitempty"`
	SpecialValues                 []float64 `json:"special_values,omitempty"`
}

// Parse reads a hints document in YAML or JSON form and returns normalized hints.
//
// Example:
//
//	absolute_tolerance: 0.01
//	significant_digits: 3
//	special_values: [-9999]
//
// Unknown keys are rejected with ErrInvalidParameter.
func Parse(data []byte) (Hints, error) {
	var doc document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return Hints{}, fmt.Errorf("%w: hints document: %v", errs.ErrInvalidParameter, err)
	}

	h := Default()
	if doc.AbsoluteTolerance != nil {
		h.AbsoluteTolerance = *doc.AbsoluteTolerance
	}
	if doc.RelativeTolerancePercent != nil {
		h.RelativeTolerancePercent = *doc.RelativeTolerancePercent
	}
	if doc.RelativeErrFinestAbsTolerance != nil {
		h.RelativeErrFinestAbsTolerance = *doc.RelativeErrFinestAbsTolerance
	}
	h.SignificantDigits = doc.SignificantDigits
	h.SignificantBits = doc.SignificantBits
	h.ForceCompressionMethods = doc.ForceCompressionMethods
	h.SpecialValues = doc.SpecialValues

	return h.Normalize()
}

// Marshal renders h as a YAML document that Parse accepts. Unconstrained tolerances
// are omitted.
func (h Hints) Marshal() ([]byte, error) {
	doc := document{
		SignificantDigits:       h.SignificantDigits,
		SignificantBits:         h.SignificantBits,
		ForceCompressionMethods: h.ForceCompressionMethods,
		SpecialValues:           h.SpecialValues,
	}
	if !math.IsInf(h.AbsoluteTolerance, 1) {
		doc.AbsoluteTolerance = &h.AbsoluteTolerance
	}
	if !math.IsInf(h.RelativeTolerancePercent, 1) {
		doc.RelativeTolerancePercent = &h.RelativeTolerancePercent
	}
	if h.RelativeErrFinestAbsTolerance != 0 {
		doc.RelativeErrFinestAbsTolerance = &h.RelativeErrFinestAbsTolerance
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal hints: %v", errs.ErrInvalidParameter, err)
	}

	return out, nil
}
