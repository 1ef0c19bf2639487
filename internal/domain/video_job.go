package domain

import (
	"time"

	"gorm.io/datatypes"
)

// RenderState tracks the downstream renderer. The pipeline only initializes it.
type RenderState struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Error  string `json:"error"`
	URL    string `json:"url"`
}

func PendingRender() RenderState {
	return RenderState{Status: "PENDING", Msg: "Render not initiated yet."}
}

// Job messages shown to the user while and after the pipeline runs.
const (
	MsgInitialized   = "Video initialized."
	MsgInProgress    = "Video is in progress..."
	MsgSucceeded     = "Video created successfully!"
	MsgFailed        = "An error occurred while creating video, please check the `error` field."
	MsgErrorOccurred = "An error occurred."
)

type CreditType string

const (
	CreditFree CreditType = "free"
	CreditPaid CreditType = "paid"
)

type VideoJob struct {
	ID            string                             `gorm:"column:id;type:varchar(128);primaryKey" json:"videoId"`
	UserID        string                             `gorm:"column:user_id;type:varchar(128);not null;index" json:"userId"`
	Prompt        string                             `gorm:"column:prompt;type:text;not null" json:"prompt"`
	ReferenceData string                             `gorm:"column:reference_data;type:text" json:"referenceData"`
	Status        VideoStatus                        `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	Stage         string                             `gorm:"column:stage;type:varchar(64)" json:"stage,omitempty"`
	Message       string                             `gorm:"column:message" json:"message"`
	Error         *string                            `gorm:"column:error" json:"error"`
	IsPublic      bool                               `gorm:"column:is_public;not null;default:false" json:"isPublic"`
	CreditType    CreditType                         `gorm:"column:credit_type;type:varchar(16)" json:"creditType,omitempty"`
	Render        datatypes.JSONType[RenderState]    `gorm:"column:render" json:"render"`
	Metadata      datatypes.JSONType[*VideoMetadata] `gorm:"column:metadata" json:"metadata"`
	Data          datatypes.JSONType[*VideoData]     `gorm:"column:data" json:"data"`
	LockedAt      *time.Time                         `gorm:"column:locked_at;index" json:"-"`
	HeartbeatAt   *time.Time                         `gorm:"column:heartbeat_at" json:"-"`
	CreatedAt     time.Time                          `gorm:"column:created_at;not null;index" json:"createdAt"`
	UpdatedAt     time.Time                          `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (VideoJob) TableName() string { return "video_job" }

// NewVideoJob builds an INITIALIZED job ready to be persisted.
func NewVideoJob(id, userID, prompt, referenceData string, credit CreditType) *VideoJob {
	now := time.Now().UTC()
	return &VideoJob{
		ID:            id,
		UserID:        userID,
		Prompt:        prompt,
		ReferenceData: referenceData,
		Status:        VideoStatusInitialized,
		Message:       MsgInitialized,
		CreditType:    credit,
		Render:        datatypes.NewJSONType(PendingRender()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ErrorText returns the recorded error or "".
func (j *VideoJob) ErrorText() string {
	if j == nil || j.Error == nil {
		return ""
	}
	return *j.Error
}
