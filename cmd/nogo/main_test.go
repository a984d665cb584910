package main

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestNoGoAnalyzer(t *testing.T) {
	if err := Analyzer.Flags.Set("allow", "allowed"); err != nil {
		t.Fatal(err)
	}
	defer Analyzer.Flags.Set("allow", "")

	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, Analyzer, "forbidden", "grouped", "allowed/worker")
}

func TestAllowed(t *testing.T) {
	allow = " core/x , ,cmd/y"
	defer func() { allow = "" }()

	tests := []struct {
		path string
		want bool
	}{
		{"example.com/core/x/pool", true},
		{"example.com/cmd/y", true},
		{"example.com/core/z", false},
	}
	for _, tt := range tests {
		if got := allowed(tt.path); got != tt.want {
			t.Errorf("allowed(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
