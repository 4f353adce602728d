package codes

// Code represents a Postgres SQLSTATE error code as received inside an
// ErrorResponse message.
type Code string

// http://www.postgresql.org/docs/current/static/errcodes-appendix.html
var (
	// Section: Class 00 - Successful Completion
	SuccessfulCompletion Code = "00000"
	// Section: Class 01 - Warning
	Warning Code = "01000"
	// Section: Class 03 - SQL Statement Not Yet Complete
	SQLStatementNotYetComplete Code = "03000"
	// Section: Class 08 - Connection Exception
	ConnectionException                     Code = "08000"
	ConnectionDoesNotExist                  Code = "08003"
	ConnectionFailure                       Code = "08006"
	SQLclientUnableToEstablishSQLconnection Code = "08001"
	ProtocolViolation                       Code = "08P01"
	// Section: Class 0A - Feature Not Supported
	FeatureNotSupported Code = "0A000"
	// Section: Class 22 - Data Exception
	DataException               Code = "22000"
	DivisionByZero              Code = "22012"
	InvalidParameterValue       Code = "22023"
	NumericValueOutOfRange      Code = "22003"
	StringDataRightTruncation   Code = "22001"
	InvalidTextRepresentation   Code = "22P02"
	InvalidBinaryRepresentation Code = "22P03"
	// Section: Class 23 - Integrity Constraint Violation
	IntegrityConstraintViolation Code = "23000"
	RestrictViolation            Code = "23001"
	NotNullViolation             Code = "23502"
	ForeignKeyViolation          Code = "23503"
	UniqueViolation              Code = "23505"
	CheckViolation               Code = "23514"
	ExclusionViolation           Code = "23P01"
	// Section: Class 25 - Invalid Transaction State
	InvalidTransactionState Code = "25000"
	ActiveSQLTransaction    Code = "25001"
	NoActiveSQLTransaction  Code = "25P01"
	InFailedSQLTransaction  Code = "25P02"
	// Section: Class 26 - Invalid SQL Statement Name
	InvalidSQLStatementName Code = "26000"
	// Section: Class 28 - Invalid Authorization Specification
	InvalidAuthorizationSpecification Code = "28000"
	InvalidPassword                   Code = "28P01"
	// Section: Class 3B - Savepoint Exception
	SavepointException            Code = "3B000"
	InvalidSavepointSpecification Code = "3B001"
	// Section: Class 3D - Invalid Catalog Name
	InvalidCatalogName Code = "3D000"
	// Section: Class 40 - Transaction Rollback
	TransactionRollback  Code = "40000"
	SerializationFailure Code = "40001"
	DeadlockDetected     Code = "40P01"
	// Section: Class 42 - Syntax Error or Access Rule Violation
	SyntaxErrorOrAccessRuleViolation   Code = "42000"
	Syntax                             Code = "42601"
	InsufficientPrivilege              Code = "42501"
	UndefinedColumn                    Code = "42703"
	UndefinedFunction                  Code = "42883"
	UndefinedTable                     Code = "42P01"
	UndefinedParameter                 Code = "42P02"
	UndefinedObject                    Code = "42704"
	DuplicateColumn                    Code = "42701"
	DuplicateRelation                  Code = "42P07"
	DuplicatePreparedStatement         Code = "42P05"
	InvalidPreparedStatementDefinition Code = "42P14"
	DatatypeMismatch                   Code = "42804"
	// Section: Class 53 - Insufficient Resources
	InsufficientResources Code = "53000"
	TooManyConnections    Code = "53300"
	// Section: Class 54 - Program Limit Exceeded
	ProgramLimitExceeded Code = "54000"
	// Section: Class 55 - Object Not In Prerequisite State
	ObjectNotInPrerequisiteState Code = "55000"
	LockNotAvailable             Code = "55P03"
	// Section: Class 57 - Operator Intervention
	OperatorIntervention Code = "57000"
	QueryCanceled        Code = "57014"
	AdminShutdown        Code = "57P01"
	CrashShutdown        Code = "57P02"
	CannotConnectNow     Code = "57P03"
	// Section: Class 58 - System Error
	System Code = "58000"
	Io     Code = "58030"
	// Section: Class XX - Internal Error
	Internal      Code = "XX000"
	DataCorrupted Code = "XX001"

	// Uncategorized is used as a fallback whenever an error does not carry a
	// more specific code.
	Uncategorized Code = "XXUUU"
)

// Class returns the two-character SQLSTATE class of the given code.
func (c Code) Class() string {
	if len(c) < 2 {
		return ""
	}

	return string(c[:2])
}

// IsConnectionException returns whether the given code belongs to the
// connection exception class (08).
func IsConnectionException(c Code) bool {
	return c.Class() == "08"
}

// IsIntegrityConstraintViolation returns whether the given code belongs to the
// integrity constraint violation class (23).
func IsIntegrityConstraintViolation(c Code) bool {
	return c.Class() == "23"
}

// IsInvalidTransactionState returns whether the given code belongs to the
// invalid transaction state class (25).
func IsInvalidTransactionState(c Code) bool {
	return c.Class() == "25"
}

// IsOperatorIntervention returns whether the given code belongs to the
// operator intervention class (57). Codes within this class typically indicate
// that the server is shutting down or has canceled the running query.
func IsOperatorIntervention(c Code) bool {
	return c.Class() == "57"
}
