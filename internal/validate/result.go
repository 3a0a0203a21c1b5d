package validate

// Issue codes returned by the validator. Phase A (structural) codes first,
// Phase B (business rule) codes after.
const (
	CodeRequiredField   = "REQUIRED_FIELD"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidRange    = "INVALID_RANGE"
	CodeMissingOptional = "MISSING_OPTIONAL"

	CodeCapitalDiscipline            = "CAPITAL_DISCIPLINE"
	CodeAutopilotInsufficientHistory = "AUTOPILOT_INSUFFICIENT_HISTORY"
	CodeAutopilotWinRateTooLow       = "AUTOPILOT_WIN_RATE_TOO_LOW"
	CodeAutopilotPaperMode           = "AUTOPILOT_PAPER_MODE"
	CodeAutopilotNoGates             = "AUTOPILOT_NO_GATES"
	CodeLiquidityChecksAdvised       = "LIQUIDITY_CHECKS_ADVISED"
)

// Issue is a single validation finding tied to a document field path.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Result is the full outcome of one validation pass. Valid is true exactly
// when Errors is empty; warnings never affect validity.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func (r *Result) addError(field, message, code string) {
	r.Errors = append(r.Errors, Issue{Field: field, Message: message, Code: code})
}

func (r *Result) addWarning(field, message, code string) {
	r.Warnings = append(r.Warnings, Issue{Field: field, Message: message, Code: code})
}

func (r *Result) finalize() Result {
	r.Valid = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []Issue{}
	}
	if r.Warnings == nil {
		r.Warnings = []Issue{}
	}
	return *r
}

// HasCode reports whether any error or warning carries the given code.
func (r Result) HasCode(code string) bool {
	for _, is := range r.Errors {
		if is.Code == code {
			return true
		}
	}
	for _, is := range r.Warnings {
		if is.Code == code {
			return true
		}
	}
	return false
}
