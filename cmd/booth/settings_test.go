package main

import (
	"errors"
	"testing"

	"github.com/franz/photobooth/internal/util"
)

func TestParseSettingsPatch(t *testing.T) {
	p, err := parseSettingsPatch([]string{"countdown=5", "flash=false", "format=png", "printer = dnp "})
	if err != nil {
		t.Fatalf("parseSettingsPatch failed: %v", err)
	}
	if p.CountdownDuration == nil || *p.CountdownDuration != 5 {
		t.Errorf("countdown not set: %+v", p.CountdownDuration)
	}
	if p.EnableFlash == nil || *p.EnableFlash {
		t.Errorf("flash not cleared: %+v", p.EnableFlash)
	}
	if p.PhotoFormat == nil || *p.PhotoFormat != "png" {
		t.Errorf("format not set: %+v", p.PhotoFormat)
	}
	if p.PrinterID == nil || *p.PrinterID != "dnp" {
		t.Errorf("printer not trimmed: %+v", p.PrinterID)
	}
	if p.Resolution != nil || p.AutoPrint != nil {
		t.Error("unmentioned settings should stay nil")
	}
}

func TestParseSettingsPatchErrors(t *testing.T) {
	for _, args := range [][]string{
		{"countdown"},
		{"volume=11"},
		{"quality=high"},
		{"auto-print=maybe"},
	} {
		if _, err := parseSettingsPatch(args); !errors.Is(err, util.ErrInvalidInput) {
			t.Errorf("%v: expected ErrInvalidInput, got %v", args, err)
		}
	}
}
