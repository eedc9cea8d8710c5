package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func ptr[T any](v T) *T {
	return &v
}

// TestNewPagination tests the NewPagination function
func TestNewPagination(t *testing.T) {
	tests := []struct {
		name           string
		limitStr       string
		offsetStr      string
		expectError    bool
		expectedLimit  int
		expectedOffset int
		description    string
	}{
		{
			name:           "Valid limit and offset",
			limitStr:       "50",
			offsetStr:      "20",
			expectedLimit:  50,
			expectedOffset: 20,
			description:    "正常なlimitとoffsetで成功すること",
		},
		{
			name:          "Default limit with empty strings",
			expectedLimit: 100,
			description:   "空文字列の場合、デフォルトのlimit=100が設定されること",
		},
		{
			name:          "Limit exceeds maximum",
			limitStr:      "2000",
			expectedLimit: 1000,
			description:   "limitが1000を超える場合、1000に制限されること",
		},
		{
			name:        "Invalid limit (non-numeric)",
			limitStr:    "abc",
			expectError: true,
			description: "limitが数値でない場合、エラーになること",
		},
		{
			name:        "Invalid limit (zero)",
			limitStr:    "0",
			expectError: true,
			description: "limitが0の場合、エラーになること",
		},
		{
			name:        "Invalid offset (negative)",
			offsetStr:   "-1",
			expectError: true,
			description: "offsetが負の数の場合、エラーになること",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pagination, err := NewPagination(tt.limitStr, tt.offsetStr)

			if tt.expectError {
				if err == nil {
					t.Errorf("%s: expected error but got nil", tt.description)
				}
				var verr *ValidationError
				if err != nil && !errors.As(err, &verr) {
					t.Errorf("%s: expected ValidationError, got %T", tt.description, err)
				}
				return
			}

			if err != nil {
				t.Errorf("%s: unexpected error: %v", tt.description, err)
				return
			}

			if pagination.Limit() != tt.expectedLimit {
				t.Errorf("%s: expected limit %d, got %d", tt.description, tt.expectedLimit, pagination.Limit())
			}
			if pagination.Offset() != tt.expectedOffset {
				t.Errorf("%s: expected offset %d, got %d", tt.description, tt.expectedOffset, pagination.Offset())
			}
		})
	}
}

// TestParseID tests ParseID and ParseOptionalID
func TestParseID(t *testing.T) {
	id := uuid.New()

	parsed, err := ParseID("substance_id", id.String())
	if err != nil {
		t.Fatalf("Failed to parse ID: %v", err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	// 空文字列と不正な形式はエラー
	for _, s := range []string{"", "not-a-uuid"} {
		if _, err := ParseID("substance_id", s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}

	// フィルタ用: 空文字列はnil
	opt, err := ParseOptionalID("substance_id", "")
	if err != nil || opt != nil {
		t.Errorf("Expected nil without error, got %v, %v", opt, err)
	}
	opt, err = ParseOptionalID("substance_id", id.String())
	if err != nil || opt == nil || *opt != id {
		t.Errorf("Expected %s, got %v, %v", id, opt, err)
	}
}

// TestNewRegimen tests regimen defaults and validation
func TestNewRegimen(t *testing.T) {
	tests := []struct {
		name        string
		input       RegimenInput
		maxDuration float64
		expected    *Regimen
		errField    string
	}{
		{
			name:        "defaults",
			input:       RegimenInput{Dose: ptr(200.0)},
			maxDuration: 336,
			expected:    &Regimen{Dose: 200, Doses: 1, Interval: 0, Duration: 24},
		},
		{
			name:        "explicit values",
			input:       RegimenInput{Dose: ptr(100.0), Doses: ptr(3), Interval: ptr(8.0), Duration: ptr(48.0)},
			maxDuration: 336,
			expected:    &Regimen{Dose: 100, Doses: 3, Interval: 8, Duration: 48},
		},
		{
			name:        "no duration cap",
			input:       RegimenInput{Dose: ptr(100.0), Duration: ptr(1000.0)},
			maxDuration: 0,
			expected:    &Regimen{Dose: 100, Doses: 1, Duration: 1000},
		},
		{name: "missing dose", input: RegimenInput{}, errField: "dose"},
		{name: "zero dose", input: RegimenInput{Dose: ptr(0.0)}, errField: "dose"},
		{name: "zero doses", input: RegimenInput{Dose: ptr(1.0), Doses: ptr(0)}, errField: "doses"},
		{name: "too many doses", input: RegimenInput{Dose: ptr(1.0), Doses: ptr(501)}, errField: "doses"},
		{name: "negative interval", input: RegimenInput{Dose: ptr(1.0), Interval: ptr(-2.0)}, errField: "interval"},
		{name: "zero duration", input: RegimenInput{Dose: ptr(1.0), Duration: ptr(0.0)}, errField: "duration"},
		{name: "duration over cap", input: RegimenInput{Dose: ptr(1.0), Duration: ptr(400.0)}, maxDuration: 336, errField: "duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regimen, err := NewRegimen(tt.input, tt.maxDuration)

			if tt.errField != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Expected ValidationError, got %v", err)
				}
				if verr.Field != tt.errField {
					t.Errorf("Expected field %q, got %q", tt.errField, verr.Field)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if *regimen != *tt.expected {
				t.Errorf("Expected %+v, got %+v", *tt.expected, *regimen)
			}
		})
	}
}
