package calc

import (
	"context"
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name string
		args AddArgs
		want string
	}{
		{"integers", AddArgs{A: 2, B: 3}, "15"},
		{"zeros", AddArgs{}, "10"},
		{"negative", AddArgs{A: -20, B: 1}, "-9"},
		{"fractions", AddArgs{A: 0.5, B: 0.25}, "10.75"},
		{"float rounding", AddArgs{A: 0.1, B: 0.2}, "10.3"},
		{"cancels to zero", AddArgs{A: -5, B: -5}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(context.Background(), tt.args)
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Add(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{15, "15"},
		{-0.0, "0"},
		{1.5, "1.5"},
		{123456789012, "123456789012"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{-2.5e22, "-2.5e+22"},
		{0.000001, "0.000001"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
