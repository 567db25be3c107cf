package models

import "time"

type ActivityLog struct {
	ID        int       `json:"id"`
	UserID    *int      `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	TableName string    `json:"table_name"`
	RecordID  *int      `json:"record_id,omitempty"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity actions
const (
	ActionLogin          = "LOGIN"
	ActionLogout         = "LOGOUT"
	ActionPasswordChange = "PASSWORD_CHANGE"
	ActionCreate         = "CREATE"
	ActionUpdate         = "UPDATE"
	ActionDelete         = "DELETE"
	ActionRent           = "RENT"
	ActionReturn         = "RETURN"
	ActionPayment        = "PAYMENT"
	ActionSettingChange  = "SETTING_CHANGE"
)
