package contracts

import "errors"

// One sentinel per failure condition. Operations wrap these with detail text;
// callers classify with errors.Is and never have to parse free text.
var (
	ErrPaused          = errors.New("contract is paused")
	ErrAlreadyPaused   = errors.New("contract is already paused")
	ErrAlreadyUnpaused = errors.New("contract is not paused")

	ErrUnauthorized       = errors.New("caller is not authorized")
	ErrNotFound           = errors.New("batch does not exist")
	ErrForbidden          = errors.New("operation not allowed in current batch state")
	ErrAlreadyInitialized = errors.New("ledger already initialized")

	ErrNotRegistered     = errors.New("entity is not registered")
	ErrAlreadyRegistered = errors.New("entity is already registered")
	ErrInvalidRole       = errors.New("invalid role")
	ErrRoleMismatch      = errors.New("role does not match registered entity type")
	ErrAlreadyActive     = errors.New("role is already active")
	ErrNotActive         = errors.New("role is not active")

	ErrDuplicateID      = errors.New("batch ID already exists")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrZeroQuantity     = errors.New("quantity must be greater than 0")
	ErrZeroValue        = errors.New("unit value must be greater than 0")
	ErrEmptyStorage     = errors.New("storage requirements cannot be empty")
	ErrInvalidExpiry    = errors.New("expiry date must be in the future")
	ErrZeroAddress      = errors.New("cannot use zero address")
	ErrInvalidRecipient = errors.New("recipient must have valid role")
	ErrEmptyReason      = errors.New("recall reason cannot be empty")
	ErrNotRecalled      = errors.New("batch is not recalled")
)
