package validation

import (
	"strings"
	"testing"
)

type runConfig struct {
	Workers int    `validate:"min=1,max=64"`
	Mode    string `validate:"required,oneof=fast exact"`
	Rounds  int    `validate:"gte=0"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		cfg     runConfig
		wantErr string
	}{
		{name: "valid", cfg: runConfig{Workers: 4, Mode: "fast"}},
		{name: "below min", cfg: runConfig{Workers: 0, Mode: "fast"}, wantErr: "Workers: must be at least 1"},
		{name: "above max", cfg: runConfig{Workers: 65, Mode: "fast"}, wantErr: "Workers: must not exceed 64"},
		{name: "missing", cfg: runConfig{Workers: 1}, wantErr: "Mode: field is required"},
		{name: "not one of", cfg: runConfig{Workers: 1, Mode: "slow"}, wantErr: "Mode: must be one of [fast exact]"},
		{name: "negative", cfg: runConfig{Workers: 1, Mode: "exact", Rounds: -1}, wantErr: "Rounds: must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("Expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateStruct_Nil(t *testing.T) {
	if err := ValidateStruct(nil); err == nil {
		t.Error("Expected error for nil value")
	}
}

func TestConfigValidator_CollectsAll(t *testing.T) {
	err := NewConfigValidator("Config").
		Positive("Concurrency", 0).
		NonNegative("MaxLevel", -1).
		NonNegative("MaxIterations", 0).
		MaxInt("Workers", 65, 64).
		MaxInt("Rounds", 2, 10).
		When(false, func(cv *ConfigValidator) {
			cv.Positive("Ignored", 0)
		}).
		When(true, func(cv *ConfigValidator) {
			cv.Positive("Seeded", -3)
		}).
		Validate()

	if err == nil {
		t.Fatal("Expected error")
	}
	for _, want := range []string{"Config.Concurrency", "Config.MaxLevel", "Config.Workers: value 65 exceeds maximum 64", "Config.Seeded"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
	for _, unwanted := range []string{"Ignored", "MaxIterations", "Rounds"} {
		if strings.Contains(err.Error(), unwanted) {
			t.Errorf("Unexpected %q in %v", unwanted, err)
		}
	}
}

func TestConfigValidator_Struct(t *testing.T) {
	err := NewConfigValidator("Run").Struct(&runConfig{Workers: 0, Mode: "fast"}).Validate()
	if err == nil {
		t.Fatal("Expected struct tag violation")
	}
	if got := err.Error(); got != "Run.Workers: must be at least 1" {
		t.Errorf("Unexpected message %q", got)
	}

	if err := NewConfigValidator("Run").Struct(&runConfig{Workers: 3, Mode: "exact"}).Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
