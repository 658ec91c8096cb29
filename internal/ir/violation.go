package ir

import "fmt"

// ErrorKind names a class of contract violation.
type ErrorKind string

// Error kinds. Codes group them: E2xx catalog, E3xx parameters,
// E4xx pipeline, E5xx shape, buffers and serialization.
const (
	KindContractNotFound         ErrorKind = "ContractNotFound"
	KindDuplicateContractID      ErrorKind = "DuplicateContractId"
	KindCatalogIntegrity         ErrorKind = "CatalogIntegrity"
	KindMissingRequiredParameter ErrorKind = "MissingRequiredParameter"
	KindInvalidParameterType     ErrorKind = "InvalidParameterType"
	KindRangeViolation           ErrorKind = "RangeViolation"
	KindOptionNotAllowed         ErrorKind = "OptionNotAllowed"
	KindColumnArityViolation     ErrorKind = "ColumnArityViolation"
	KindDependencyViolation      ErrorKind = "DependencyViolation"
	KindUnknownColumn            ErrorKind = "UnknownColumn"
	KindUnknownParameter         ErrorKind = "UnknownParameter"
	KindSharedParameterConflict  ErrorKind = "SharedParameterConflict"
	KindEmptyPipeline            ErrorKind = "EmptyPipeline"
	KindFormulaEvaluationError   ErrorKind = "FormulaEvaluationError"
	KindUnmappedCategoricalValue ErrorKind = "UnmappedCategoricalValue"
	KindScratchBufferUnresolved  ErrorKind = "ScratchBufferUnresolved"
	KindDeferredBufferUnresolved ErrorKind = "DeferredBufferUnresolved"
	KindScratchBudgetExceeded    ErrorKind = "ScratchBudgetExceeded"
	KindNoNativeImplementation   ErrorKind = "NoNativeImplementation"
)

var kindCodes = map[ErrorKind]string{
	KindContractNotFound:         "E201",
	KindDuplicateContractID:      "E202",
	KindCatalogIntegrity:         "E203",
	KindMissingRequiredParameter: "E301",
	KindInvalidParameterType:     "E302",
	KindRangeViolation:           "E303",
	KindDependencyViolation:      "E304",
	KindUnknownColumn:            "E305",
	KindUnknownParameter:         "E306",
	KindOptionNotAllowed:         "E307",
	KindColumnArityViolation:     "E308",
	KindSharedParameterConflict:  "E401",
	KindEmptyPipeline:            "E402",
	KindFormulaEvaluationError:   "E501",
	KindUnmappedCategoricalValue: "E502",
	KindScratchBufferUnresolved:  "E503",
	KindDeferredBufferUnresolved: "E504",
	KindScratchBudgetExceeded:    "E505",
	KindNoNativeImplementation:   "E506",
}

// Code returns the stable diagnostic code of the kind.
func (k ErrorKind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return "E001"
}

// Scope says whether a violation belongs to one step or to the pipeline.
type Scope string

const (
	ScopeStep     Scope = "step"
	ScopePipeline Scope = "pipeline"
	ScopeCatalog  Scope = "catalog"
)

// Violation is one reported problem. Violations are collected, never
// short-circuited, so a caller sees every problem of a step at once.
type Violation struct {
	Kind     ErrorKind `json:"kind"`
	Code     string    `json:"code"`
	Scope    Scope     `json:"scope"`
	Step     int       `json:"step"` // -1 when not tied to one step
	Contract string    `json:"contract,omitempty"`
	Param    string    `json:"param,omitempty"`
	Message  string    `json:"message"`
}

// NewViolation builds a step-scoped violation.
func NewViolation(kind ErrorKind, step int, contract, param, format string, args ...any) Violation {
	return Violation{
		Kind:     kind,
		Code:     kind.Code(),
		Scope:    ScopeStep,
		Step:     step,
		Contract: contract,
		Param:    param,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (v Violation) Error() string {
	loc := ""
	switch {
	case v.Step >= 0 && v.Param != "":
		loc = fmt.Sprintf("step %d (%s) %s: ", v.Step, v.Contract, v.Param)
	case v.Step >= 0:
		loc = fmt.Sprintf("step %d (%s): ", v.Step, v.Contract)
	case v.Contract != "" && v.Param != "":
		loc = fmt.Sprintf("%s.%s: ", v.Contract, v.Param)
	case v.Contract != "":
		loc = v.Contract + ": "
	}
	return fmt.Sprintf("[%s] %s%s: %s", v.Code, loc, v.Kind, v.Message)
}
