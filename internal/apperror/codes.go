package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain access
const (
	CodeRPCConnectionFailed Code = "RPC_CONNECTION_FAILED"
	CodeRPCCallFailed       Code = "RPC_CALL_FAILED"
	CodeRPCRetriesExhausted Code = "RPC_RETRIES_EXHAUSTED"
	CodeBlockNotFound       Code = "BLOCK_NOT_FOUND"
	CodeMulticallEncode     Code = "MULTICALL_ENCODE_FAILED"
	CodeMulticallDecode     Code = "MULTICALL_DECODE_FAILED"
	CodeUnknownChain        Code = "UNKNOWN_CHAIN"
	CodeCircuitOpen         Code = "CIRCUIT_OPEN"
)

// Market extraction and aggregation
const (
	CodeUnknownUnderlying Code = "UNKNOWN_UNDERLYING"
	CodeUnknownAsset      Code = "UNKNOWN_ASSET"
	CodeDuplicateDeposit  Code = "DUPLICATE_DEPOSIT"
)

// Pricing
const (
	CodePriceUnavailable Code = "PRICE_UNAVAILABLE"
	CodePriceFetchFailed Code = "PRICE_FETCH_FAILED"
)
