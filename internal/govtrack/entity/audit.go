package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB colonne jsonb postgres
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONB: %v", value)
	}
	return json.Unmarshal(bytes, j)
}

// Actions d'audit
const (
	AuditActionCreate        = "create"
	AuditActionUpdate        = "update"
	AuditActionDelete        = "delete"
	AuditActionStatusChange  = "status_change"
	AuditActionAssign        = "assign"
	AuditActionUnassign      = "unassign"
	AuditActionUpload        = "upload"
	AuditActionDownload      = "download"
	AuditActionExport        = "export"
	AuditActionLogin         = "login"
	AuditActionLogout        = "logout"
	AuditActionPasswordReset = "password_reset"
)

// AuditLog piste d'audit append-only. Jamais de mise à jour ni de
// suppression applicative.
type AuditLog struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	UserID      *string   `json:"user_id" gorm:"size:32;index"`
	Action      string    `json:"action" gorm:"size:32;not null;index"`
	Table       string    `json:"table_name" gorm:"column:table_name;size:64;not null;index"`
	RecordID    string    `json:"record_id" gorm:"size:32;index"`
	DeletedData JSONB     `json:"deleted_data" gorm:"type:jsonb"`
	Reason      string    `json:"reason" gorm:"type:text"`
	IPAddress   string    `json:"ip_address" gorm:"size:64"`
	URL         string    `json:"url" gorm:"size:512"`
	Method      string    `json:"method" gorm:"size:16"`
	UserAgent   string    `json:"user_agent" gorm:"size:512"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
