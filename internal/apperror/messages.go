package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeRPCConnectionFailed: "Failed to connect to RPC endpoint",
	CodeRPCCallFailed:       "RPC call failed",
	CodeRPCRetriesExhausted: "RPC retries exhausted for chain",
	CodeBlockNotFound:       "Block not found",
	CodeMulticallEncode:     "Failed to encode multicall batch",
	CodeMulticallDecode:     "Failed to decode multicall result",
	CodeUnknownChain:        "Chain is not configured",
	CodeCircuitOpen:         "Circuit breaker is open",

	CodeUnknownUnderlying: "Pool underlying token is not mapped to an asset",
	CodeUnknownAsset:      "Asset is not registered",
	CodeDuplicateDeposit:  "Duplicate deposit for position",

	CodePriceUnavailable: "No price cached for asset",
	CodePriceFetchFailed: "Failed to fetch asset prices",
}
