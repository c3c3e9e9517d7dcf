package auth

// InstallResult describes a completed OAuth callback.
type InstallResult struct {
	Shop               string `json:"shop"`
	RedirectURL        string `json:"redirect_url"`
	SessionStored      bool   `json:"session_stored"`
	WebhooksRegistered bool   `json:"webhooks_registered"`
}

// ConnectionStatus is shown inside the embedded admin.
type ConnectionStatus struct {
	Status   string  `json:"status"`
	ShopName string  `json:"shop_name"`
	StoreID  string  `json:"store_id,omitempty"`
	UserID   *string `json:"user_id,omitempty"`
	Message  string  `json:"message,omitempty"`
}

const (
	ConnectionConnected = "connected"
	ConnectionPending   = "pending"
)
