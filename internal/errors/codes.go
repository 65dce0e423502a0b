package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. The storefront maps these to its own copy.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized    = "AUTH_UNAUTHORIZED"     // login required
	AuthTokenExpired    = "AUTH_TOKEN_EXPIRED"    // token expired
	AuthTokenInvalid    = "AUTH_TOKEN_INVALID"    // malformed token
	AuthCodeInvalid     = "AUTH_CODE_INVALID"     // wrong or malformed one-time code
	AuthCodeTooSoon     = "AUTH_CODE_TOO_SOON"    // resend cooldown running
	AuthInvalidChannel  = "AUTH_INVALID_CHANNEL"  // unknown delivery channel
	AuthInvalidContact  = "AUTH_INVALID_CONTACT"  // bad email or phone number

	// ==================== Authz (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN" // access denied

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND"
	ResourceConflict = "RESOURCE_CONFLICT"

	// ==================== Shops (SHOP_) ====================
	ShopNotFound    = "SHOP_NOT_FOUND"
	ProductNotFound = "PRODUCT_NOT_FOUND"

	// ==================== Cart (CART_) ====================
	CartInvalidQuantity = "CART_INVALID_QUANTITY" // quantity below one
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartOutOfStock      = "CART_OUT_OF_STOCK"
	CartEmpty           = "CART_EMPTY"

	// ==================== Session (SESSION_) ====================
	SessionUnavailable = "SESSION_UNAVAILABLE" // visitor store unreachable

	// ==================== Orders (ORDER_) ====================
	OrderInvalidStatus = "ORDER_INVALID_STATUS"
	OrderExportFailed  = "ORDER_EXPORT_FAILED"

	// ==================== Upload (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR"
	InternalExternalAPI = "INTERNAL_EXTERNAL_API" // Marché241 API unreachable
	InternalConfigError = "INTERNAL_CONFIG_ERROR"
)
