package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestGetConfigDuration(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"unset", nil, 1500 * time.Millisecond},
		{"explicit zero", "0s", 0},
		{"configured", "250ms", 250 * time.Millisecond},
		{"negative", "-1s", 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(func() {
				viper.Reset()
				setDefaults()
			})
			if tt.value != nil {
				viper.Set("capture.inter-shot-delay", tt.value)
			}
			if got := GetConfigDuration("capture.inter-shot-delay", 1500*time.Millisecond); got != tt.want {
				t.Errorf("GetConfigDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
