package types

// Names of the builder functions and types the log pass recognizes. They form
// the ABI between the front end that lowers interpolated log messages and the
// pass that folds them.
const (
	InterpolationInit        = "OSLogInterpolation.init"
	AppendLiteral            = "OSLogInterpolation.appendLiteral"
	AppendInterpolation      = "OSLogInterpolation.appendInterpolation"
	AppendArguments          = "OSLogInterpolation.appendArguments"
	MessageInitInterpolation = "OSLogMessage.init.stringInterpolation"
	MessageInitLiteral       = "OSLogMessage.init.stringLiteral"
	StringInitBuiltinLiteral = "String.init.builtinStringLiteral"
	LoggerLog                = "Logger.log"
	LogImpl                  = "osLogImpl"
	PackArguments            = "OSLogArguments.pack"
)

const (
	FormatType  = "OSLogIntegerFormatting"
	PrivacyType = "OSLogPrivacy"
	ClosureType = "Closure"
	PackerType  = "OSLogArguments"
)

var reservedFuncNames = []string{
	InterpolationInit,
	AppendLiteral,
	AppendInterpolation,
	AppendArguments,
	MessageInitInterpolation,
	MessageInitLiteral,
	StringInitBuiltinLiteral,
	LoggerLog,
	LogImpl,
	PackArguments,
}

var reservedFuncSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(reservedFuncNames))
	for _, f := range reservedFuncNames {
		m[f] = struct{}{}
	}
	return m
}()

// ReservedFuncNames returns a copy of the builder ABI function names.
func ReservedFuncNames() []string {
	return append([]string(nil), reservedFuncNames...)
}

// IsReservedFuncName reports whether name belongs to the log builder ABI.
// Modules may call these functions but never define them.
func IsReservedFuncName(name string) bool {
	_, ok := reservedFuncSet[name]
	return ok
}
