package types

import "github.com/dropsaas/shopify-bridge/pkg/pagination"

// SuccessEnvelope wraps every successful JSON response.
type SuccessEnvelope struct {
	Success    bool             `json:"success"`
	Data       any              `json:"data"`
	Pagination *pagination.Page `json:"pagination,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}
