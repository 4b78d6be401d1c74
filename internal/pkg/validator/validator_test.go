package validator

import "testing"

type sample struct {
	Type       string  `json:"alert_type" validate:"required"`
	Severity   string  `json:"severity" validate:"required,severity"`
	Confidence float64 `json:"confidence" validate:"unitinterval"`
}

func TestValidate(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		in        sample
		wantField string
	}{
		{name: "valid", in: sample{Type: "motion", Severity: "medium", Confidence: 0.4}},
		{name: "missing type", in: sample{Severity: "low"}, wantField: "alert_type"},
		{name: "bad severity", in: sample{Type: "motion", Severity: "urgent"}, wantField: "severity"},
		{name: "confidence above one", in: sample{Type: "motion", Severity: "low", Confidence: 1.2}, wantField: "confidence"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.in)
			if tt.wantField == "" {
				if errs != nil {
					t.Fatalf("Validate() = %v, want nil", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %s, want %s", errs[0].Field, tt.wantField)
			}
		})
	}
}
