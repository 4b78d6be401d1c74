package client

import "time"

// Alert is a security alert
type Alert struct {
	ID              int64                    `json:"id"`
	Type            string                   `json:"alert_type"`
	Severity        string                   `json:"severity"`
	Status          string                   `json:"status"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description,omitempty"`
	CameraID        *int64                   `json:"camera_id,omitempty"`
	Location        *string                  `json:"location,omitempty"`
	Coordinates     map[string]float64       `json:"coordinates,omitempty"`
	ConfidenceScore *float64                 `json:"confidence_score,omitempty"`
	DetectedObjects []map[string]interface{} `json:"detected_objects,omitempty"`
	BiometricData   map[string]interface{}   `json:"biometric_data,omitempty"`
	AIAnalysis      map[string]interface{}   `json:"ai_analysis,omitempty"`
	ImagePath       string                   `json:"image_path,omitempty"`
	VideoPath       string                   `json:"video_path,omitempty"`
	UserID          *int64                   `json:"user_id,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	AcknowledgedAt  *time.Time               `json:"acknowledged_at,omitempty"`
	ResolvedAt      *time.Time               `json:"resolved_at,omitempty"`
	ResponseTime    *float64                 `json:"response_time,omitempty"`
	EmailSent       bool                     `json:"email_sent"`
	SMSSent         bool                     `json:"sms_sent"`
	WebhookSent     bool                     `json:"webhook_sent"`
	PushSent        bool                     `json:"push_sent"`
}

// AlertInput carries the fields of a new alert
type AlertInput struct {
	Type            string                   `json:"alert_type"`
	Severity        string                   `json:"severity"`
	Title           string                   `json:"title"`
	Description     string                   `json:"description,omitempty"`
	CameraID        *int64                   `json:"camera_id,omitempty"`
	Location        *string                  `json:"location,omitempty"`
	Coordinates     map[string]float64       `json:"coordinates,omitempty"`
	DetectedObjects []map[string]interface{} `json:"detected_objects,omitempty"`
	AIAnalysis      map[string]interface{}   `json:"ai_analysis,omitempty"`
	ImagePath       string                   `json:"image_path,omitempty"`
}

// AlertUpdate carries editable fields. Nil fields are left alone.
type AlertUpdate struct {
	Description *string                `json:"description,omitempty"`
	Severity    *string                `json:"severity,omitempty"`
	Location    *string                `json:"location,omitempty"`
	AIAnalysis  map[string]interface{} `json:"ai_analysis,omitempty"`
	ImagePath   *string                `json:"image_path,omitempty"`
	VideoPath   *string                `json:"video_path,omitempty"`
}

// Statistics summarises alerts over a window
type Statistics struct {
	TotalAlerts         int            `json:"total_alerts"`
	BySeverity          map[string]int `json:"by_severity"`
	ByType              map[string]int `json:"by_type"`
	ByStatus            map[string]int `json:"by_status"`
	ByCamera            map[string]int `json:"by_camera"`
	ResponseTimes       []float64      `json:"response_times"`
	AverageResponseTime float64        `json:"average_response_time"`
	UnresolvedAlerts    int            `json:"unresolved_alerts"`
	DateRange           struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"date_range"`
}

// CameraConfig describes one monitored camera
type CameraConfig struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Source   string  `json:"source"`
	Location *string `json:"location,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
}

// CameraStatus is a monitor snapshot
type CameraStatus struct {
	Camera          CameraConfig `json:"camera"`
	State           string       `json:"state"`
	StartedAt       time.Time    `json:"started_at"`
	StoppedAt       *time.Time   `json:"stopped_at,omitempty"`
	FramesProcessed uint64       `json:"frames_processed"`
	ReadErrors      uint64       `json:"read_errors"`
	MotionEvents    uint64       `json:"motion_events"`
	EmergencyEvents uint64       `json:"emergency_events"`
	LastFrameAt     *time.Time   `json:"last_frame_at,omitempty"`
	LastError       string       `json:"last_error,omitempty"`
}

// Sample is one biometric capture
type Sample struct {
	Data     []byte    `json:"data,omitempty"`
	Encoding []float64 `json:"encoding,omitempty"`
}

// ModalityResult is the outcome of matching one modality
type ModalityResult struct {
	Modality   string   `json:"modality"`
	Success    bool     `json:"success"`
	UserID     *int64   `json:"user_id,omitempty"`
	Confidence float64  `json:"confidence"`
	Distance   *float64 `json:"distance,omitempty"`
	Method     string   `json:"method"`
	Error      string   `json:"error,omitempty"`
}

// FusionResult is the combined multi-modal decision
type FusionResult struct {
	Success              bool             `json:"success"`
	UserID               *int64           `json:"user_id,omitempty"`
	Confidence           float64          `json:"confidence"`
	SuccessfulModalities int              `json:"successful_modalities"`
	TotalModalities      int              `json:"total_modalities"`
	Results              []ModalityResult `json:"detailed_results"`
	Failure              string           `json:"failure,omitempty"`
}

// RegistrationResult is returned when enrolling a template
type RegistrationResult struct {
	Success  bool      `json:"success"`
	Modality string    `json:"modality"`
	UserID   int64     `json:"user_id"`
	Template string    `json:"template,omitempty"`
	Encoding []float64 `json:"encoding,omitempty"`
	Quality  float64   `json:"quality"`
}

// LivenessResult is the outcome of the liveness gate
type LivenessResult struct {
	IsLive       bool    `json:"is_live"`
	Confidence   float64 `json:"confidence"`
	QualityScore float64 `json:"quality_score"`
}
